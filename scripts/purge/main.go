package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Clears the stored chat transcript for one owner.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go <owner_id>")
		fmt.Println("Example: go run main.go user-123")
		os.Exit(1)
	}

	ownerID := os.Args[1]

	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:3005"
	}

	url := apiURL + "/api/chat/history"
	fmt.Printf("Purging chat history for owner %s...\n", ownerID)
	fmt.Printf("URL: %s\n", url)

	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("X-User-ID", ownerID)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		fmt.Printf("Error: HTTP %d\n", resp.StatusCode)
		fmt.Printf("Response: %s\n", string(body))
		os.Exit(1)
	}
	fmt.Println("Success!")
}
