package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"jarvis-agent/internal/domain"
)

// fixed width keeps lexical and chronological order identical.
const turnTimeLayout = "2006-01-02T15:04:05.000000000Z"

func turnSK(ts time.Time, suffix string) string {
	return skPrefixTurn + ts.UTC().Format(turnTimeLayout) + "#" + suffix
}

// AppendTurn writes a history turn and bumps the conversation's last-active
// timestamp in one transaction. The conversation is created implicitly.
func (c *Client) AppendTurn(ctx context.Context, conversationID string, turn domain.Turn) error {
	if conversationID == "" {
		return errors.New("repository: AppendTurn: conversation id is required")
	}
	if turn.Role != domain.RoleUser && turn.Role != domain.RoleAssistant {
		return fmt.Errorf("repository: AppendTurn: invalid role %q", turn.Role)
	}
	now := c.now()
	at := turn.At
	if at.IsZero() {
		at = now
	}
	id := c.newID()
	if len(id) > 8 {
		id = id[:8]
	}

	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName: aws.String(c.tableName),
					Item: map[string]types.AttributeValue{
						"PK":      strValue(chatPK(conversationID)),
						"SK":      strValue(turnSK(at, id)),
						"role":    strValue(string(turn.Role)),
						"content": strValue(turn.Content),
						"at":      strValue(at.UTC().Format(time.RFC3339Nano)),
						"ttl":     ttlAt(now, c.turnTTL),
					},
					ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
				},
			},
			{
				Update: &types.Update{
					TableName:        aws.String(c.tableName),
					Key:              metaKey(conversationID),
					UpdateExpression: aws.String("SET conversationId = :cid, lastActive = :at"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":cid": strValue(conversationID),
						":at":  strValue(now.Format(time.RFC3339Nano)),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: AppendTurn: %w", err)
	}
	return nil
}

// LatestTurns returns up to limit turns, newest first, as stored.
func (c *Client) LatestTurns(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     strValue(chatPK(conversationID)),
			":prefix": strValue(skPrefixTurn),
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: LatestTurns query: %w", err)
	}

	turns := make([]domain.Turn, 0, len(out.Items))
	for _, item := range out.Items {
		turn, err := itemToTurn(item)
		if err != nil {
			return nil, fmt.Errorf("repository: LatestTurns unmarshal: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// DeleteRecentTurns removes up to limit of the most recent turns and reports
// how many were deleted. Older turns are left to expire through TTL.
func (c *Client) DeleteRecentTurns(ctx context.Context, conversationID string, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     strValue(chatPK(conversationID)),
			":prefix": strValue(skPrefixTurn),
		},
		ProjectionExpression: aws.String("PK, SK"),
		ScanIndexForward:     aws.Bool(false),
		Limit:                aws.Int32(int32(limit)),
	})
	if err != nil {
		return 0, fmt.Errorf("repository: DeleteRecentTurns query: %w", err)
	}

	requests := make([]types.WriteRequest, 0, len(out.Items))
	for _, item := range out.Items {
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
				"PK": item["PK"],
				"SK": item["SK"],
			}},
		})
	}
	if err := c.batchWrite(ctx, requests); err != nil {
		return 0, fmt.Errorf("repository: DeleteRecentTurns: %w", err)
	}
	return len(requests), nil
}

const maxBatchAttempts = 3

// batchWrite sends requests in chunks of 25, resubmitting unprocessed items a
// bounded number of times.
func (c *Client) batchWrite(ctx context.Context, requests []types.WriteRequest) error {
	for start := 0; start < len(requests); start += batchWriteLimit {
		end := min(start+batchWriteLimit, len(requests))
		pending := map[string][]types.WriteRequest{c.tableName: requests[start:end]}
		for attempt := 1; len(pending[c.tableName]) > 0; attempt++ {
			if attempt > maxBatchAttempts {
				return fmt.Errorf("batch write: %d items left unprocessed", len(pending[c.tableName]))
			}
			out, err := c.api.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return fmt.Errorf("batch write: %w", err)
			}
			if out == nil {
				break
			}
			pending = out.UnprocessedItems
		}
	}
	return nil
}

func itemToTurn(item map[string]types.AttributeValue) (domain.Turn, error) {
	role, err := strAttr(item, "role")
	if err != nil {
		return domain.Turn{}, err
	}
	content, err := strAttr(item, "content")
	if err != nil {
		return domain.Turn{}, err
	}
	at, _ := timeAttr(item, "at") // allow missing
	return domain.Turn{Role: domain.Role(role), Content: content, At: at}, nil
}
