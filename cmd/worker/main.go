package main

import (
	"context"
	"os"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-orderdesk/internal/aws"
	"github.com/imrishuroy/go-orderdesk/internal/config"
	"github.com/imrishuroy/go-orderdesk/internal/logging"
)

const defaultLocalBody = `{"order_id":"local-order-1","action":"accept","from":"Pending","to":"Preparing","bucket":"Ongoing","total_amount":"320","occurred_at":"2024-06-01T18:00:00Z"}`

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	logger := logging.New(cfg.LogLevel)

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		logger.Fatalf("failed to init aws clients: %v", err)
	}
	p := NewProcessor(aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace), logger)

	// Local testing helper: replay one SQS record from LOCAL_SQS_BODY.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			body = defaultLocalBody
		}
		event := lambdaevents.SQSEvent{
			Records: []lambdaevents.SQSMessage{{MessageId: "local-1", Body: body}},
		}
		resp, err := p.Handle(context.Background(), event)
		if err != nil || len(resp.BatchItemFailures) > 0 {
			logger.Fatalf("local handler failed: %v %+v", err, resp.BatchItemFailures)
		}
		return
	}

	lambda.Start(p.Handle)
}
