package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MarkProcessed records that eventID was handled for the conversation. The
// conditional put makes check-then-set a single step: created is false when a
// marker already existed.
func (c *Client) MarkProcessed(ctx context.Context, conversationID, eventID string) (bool, error) {
	if conversationID == "" || eventID == "" {
		return false, errors.New("repository: MarkProcessed: conversation id and event id are required")
	}
	now := c.now()
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"PK":          strValue(chatPK(conversationID)),
			"SK":          strValue(skPrefixEvent + eventID),
			"processedAt": strValue(now.Format(time.RFC3339Nano)),
			"ttl":         ttlAt(now, c.processedTTL),
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		var exists *types.ConditionalCheckFailedException
		if errors.As(err, &exists) {
			return false, nil
		}
		return false, fmt.Errorf("repository: MarkProcessed: %w", err)
	}
	return true, nil
}
