package llm

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/kyotaro/personasim/internal/config"
)

var novaModels = map[string]string{
	"nova-lite": "us.amazon.nova-2-lite-v1:0",
}

const novaMaxTokens = 4096

// NovaClient is a hosted backend using the AWS Bedrock Converse API.
// Credentials come from the SDK default chain.
type NovaClient struct {
	client      *bedrockruntime.Client
	modelID     string
	temperature float32
}

func NewNovaClient(ctx context.Context, cfg *config.Config) (*NovaClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	modelID := novaModels[cfg.NovaModel]
	if modelID == "" {
		modelID = novaModels["nova-lite"]
	}

	return &NovaClient{
		client:      bedrockruntime.NewFromConfig(awsCfg),
		modelID:     modelID,
		temperature: float32(cfg.Temperature),
	}, nil
}

func (n *NovaClient) Name() string { return "nova:" + n.modelID }

func (n *NovaClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := n.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(n.modelID),
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: prompt},
				},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(novaMaxTokens),
			Temperature: aws.Float32(n.temperature),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Bedrock Converse error: %w", err)
	}

	text := extractNovaText(resp)
	if text == "" {
		return "", fmt.Errorf("response contained no text")
	}
	return text, nil
}

func extractNovaText(resp *bedrockruntime.ConverseOutput) string {
	if resp.Output == nil {
		return ""
	}
	msg, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			return tb.Value
		}
	}
	return ""
}
