package mainconfig

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/wolfman30/reflection-coach/internal/config"
)

func TestLoadAWSConfigStaticCredentials(t *testing.T) {
	cfg := &appconfig.Config{AWSRegion: "us-west-2", AWSAccessKeyID: "AKID", AWSSecretAccessKey: "secret"}
	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if awsCfg.Region != "us-west-2" {
		t.Fatalf("expected region override, got %s", awsCfg.Region)
	}
	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("retrieve credentials: %v", err)
	}
	if creds.AccessKeyID != "AKID" {
		t.Fatalf("expected static credentials, got %s", creds.AccessKeyID)
	}
	if awsCfg.EndpointResolverWithOptions != nil {
		t.Fatalf("expected no endpoint override")
	}
}

func TestEndpointOverrideOnlyAppliesToLocalServices(t *testing.T) {
	resolver := endpointOverride("http://localhost:4566", "us-east-1")

	ep, err := resolver.ResolveEndpoint(sqs.ServiceID, "us-east-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ep.URL != "http://localhost:4566" || ep.SigningRegion != "us-east-1" {
		t.Fatalf("unexpected endpoint %+v", ep)
	}

	_, err = resolver.ResolveEndpoint(bedrockruntime.ServiceID, "us-east-1")
	var notFound *aws.EndpointNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected bedrock to use the default resolver, got %v", err)
	}
}
