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

// SetFolderContext overwrites the conversation's folder context fields.
func (c *Client) SetFolderContext(ctx context.Context, conversationID string, fc domain.FolderContext) error {
	at := fc.At
	if at.IsZero() {
		at = c.now()
	}
	children := make([]types.AttributeValue, 0, len(fc.Children))
	for _, r := range fc.Children {
		children = append(children, &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"id":       strValue(r.ID),
			"name":     strValue(r.Name),
			"mimeType": strValue(r.MimeType),
		}})
	}

	_, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.tableName),
		Key:       metaKey(conversationID),
		UpdateExpression: aws.String("SET conversationId = :cid, lastFolderId = :fid, lastFolderName = :name, " +
			"lastFolderChildren = :children, lastFolderAt = :at"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid":      strValue(conversationID),
			":fid":      strValue(fc.FolderID),
			":name":     strValue(fc.Name),
			":children": &types.AttributeValueMemberL{Value: children},
			":at":       strValue(at.UTC().Format(time.RFC3339Nano)),
		},
	})
	if err != nil {
		return fmt.Errorf("repository: SetFolderContext: %w", err)
	}
	return nil
}

// GetFolderContext returns the stored folder context; ok is false when the
// conversation has none.
func (c *Client) GetFolderContext(ctx context.Context, conversationID string) (domain.FolderContext, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            metaKey(conversationID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.FolderContext{}, false, fmt.Errorf("repository: GetFolderContext get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.FolderContext{}, false, nil
	}
	name, err := strAttr(out.Item, "lastFolderName")
	if err != nil || name == "" {
		return domain.FolderContext{}, false, nil
	}

	fc := domain.FolderContext{Name: name}
	fc.FolderID, _ = strAttr(out.Item, "lastFolderId")
	fc.At, _ = timeAttr(out.Item, "lastFolderAt")
	if list, ok := out.Item["lastFolderChildren"].(*types.AttributeValueMemberL); ok {
		for _, v := range list.Value {
			m, ok := v.(*types.AttributeValueMemberM)
			if !ok {
				return domain.FolderContext{}, false, errors.New("repository: GetFolderContext: child entry is not a map")
			}
			child := domain.Resource{}
			child.ID, _ = strAttr(m.Value, "id")
			child.MimeType, _ = strAttr(m.Value, "mimeType")
			if child.Name, err = strAttr(m.Value, "name"); err != nil {
				return domain.FolderContext{}, false, fmt.Errorf("repository: GetFolderContext: %w", err)
			}
			fc.Children = append(fc.Children, child)
		}
	}
	return fc, true, nil
}

// ListConversations returns the identifier of every known conversation.
func (c *Client) ListConversations(ctx context.Context) ([]string, error) {
	var (
		ids   []string
		start map[string]types.AttributeValue
	)
	for {
		out, err := c.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(c.tableName),
			FilterExpression:          aws.String("SK = :meta"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":meta": strValue(skMeta)},
			ProjectionExpression:      aws.String("conversationId"),
			ExclusiveStartKey:         start,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: ListConversations scan: %w", err)
		}
		for _, item := range out.Items {
			id, err := strAttr(item, "conversationId")
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return ids, nil
		}
		start = out.LastEvaluatedKey
	}
}
