// Package main provides the AWS Lambda entry point for tagsync. Each
// invocation runs one synchronization pass and returns its summary.
package main

import (
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/agentstation/tagsync/pkg/logging"
)

func main() {
	logging.ConfigureFromEnv()
	lambda.Start(newHandler().Handle)
}
