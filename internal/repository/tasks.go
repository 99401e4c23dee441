package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"jarvis-agent/internal/domain"
)

// AddTask stores a pending task. The task ID embeds the creation time so
// listings come back in creation order.
func (c *Client) AddTask(ctx context.Context, conversationID, title string) (domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Task{}, errors.New("repository: AddTask: title is required")
	}
	now := c.now()
	task := domain.Task{
		ID:        now.Format(turnTimeLayout) + "#" + c.newID(),
		Title:     title,
		Status:    domain.TaskPending,
		CreatedAt: now,
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"PK":        strValue(chatPK(conversationID)),
			"SK":        strValue(skPrefixTask + task.ID),
			"title":     strValue(task.Title),
			"status":    strValue(task.Status),
			"createdAt": strValue(now.Format(time.RFC3339Nano)),
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return domain.Task{}, fmt.Errorf("repository: AddTask: %w", err)
	}
	return task, nil
}

// PendingTasks returns every pending task in creation order.
func (c *Client) PendingTasks(ctx context.Context, conversationID string) ([]domain.Task, error) {
	var (
		tasks []domain.Task
		start map[string]types.AttributeValue
	)
	for {
		out, err := c.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(c.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
			FilterExpression:       aws.String("#status = :pending"),
			ExpressionAttributeNames: map[string]string{
				"#status": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":      strValue(chatPK(conversationID)),
				":prefix":  strValue(skPrefixTask),
				":pending": strValue(domain.TaskPending),
			},
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: PendingTasks query: %w", err)
		}
		for _, item := range out.Items {
			task, err := itemToTask(item)
			if err != nil {
				return nil, fmt.Errorf("repository: PendingTasks unmarshal: %w", err)
			}
			tasks = append(tasks, task)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return tasks, nil
		}
		start = out.LastEvaluatedKey
	}
}

// CompleteTask marks a pending task done. Completing a task that is not
// pending fails.
func (c *Client) CompleteTask(ctx context.Context, conversationID, taskID string) error {
	if taskID == "" {
		return errors.New("repository: CompleteTask: task id is required")
	}
	_, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": strValue(chatPK(conversationID)),
			"SK": strValue(skPrefixTask + taskID),
		},
		UpdateExpression:    aws.String("SET #status = :done, completedAt = :at"),
		ConditionExpression: aws.String("#status = :pending"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":done":    strValue(domain.TaskDone),
			":pending": strValue(domain.TaskPending),
			":at":      strValue(c.now().Format(time.RFC3339Nano)),
		},
	})
	if err != nil {
		return fmt.Errorf("repository: CompleteTask: %w", err)
	}
	return nil
}

func itemToTask(item map[string]types.AttributeValue) (domain.Task, error) {
	sk, err := strAttr(item, "SK")
	if err != nil {
		return domain.Task{}, err
	}
	title, err := strAttr(item, "title")
	if err != nil {
		return domain.Task{}, err
	}
	status, _ := strAttr(item, "status")
	created, _ := timeAttr(item, "createdAt")
	return domain.Task{
		ID:        strings.TrimPrefix(sk, skPrefixTask),
		Title:     title,
		Status:    status,
		CreatedAt: created,
	}, nil
}
