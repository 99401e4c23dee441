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

func expenseSKBound(t time.Time) string {
	return skPrefixExpense + t.UTC().Format(expenseTimeLayout)
}

// AddExpense stores an expense. Amounts must already be normalized and
// positive.
func (c *Client) AddExpense(ctx context.Context, conversationID string, e domain.Expense) (domain.Expense, error) {
	if e.Amount <= 0 {
		return domain.Expense{}, errors.New("repository: AddExpense: amount must be positive")
	}
	if e.At.IsZero() {
		e.At = c.now()
	}
	e.At = e.At.UTC().Truncate(time.Second)
	if strings.TrimSpace(e.Category) == "" {
		e.Category = domain.DefaultExpenseCategory
	}
	e.ID = e.At.Format(expenseTimeLayout) + "#" + c.newID()

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"PK":       strValue(chatPK(conversationID)),
			"SK":       strValue(skPrefixExpense + e.ID),
			"amount":   floatValue(e.Amount),
			"category": strValue(e.Category),
			"item":     strValue(e.Item),
			"at":       strValue(e.At.Format(time.RFC3339Nano)),
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return domain.Expense{}, fmt.Errorf("repository: AddExpense: %w", err)
	}
	return e, nil
}

// ExpensesBetween returns expenses recorded in [from, to) in chronological
// order.
func (c *Client) ExpensesBetween(ctx context.Context, conversationID string, from, to time.Time) ([]domain.Expense, error) {
	if !to.After(from) {
		return nil, nil
	}
	var (
		expenses []domain.Expense
		start    map[string]types.AttributeValue
	)
	for {
		out, err := c.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(c.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :from AND :to"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":   strValue(chatPK(conversationID)),
				":from": strValue(expenseSKBound(from)),
				":to":   strValue(expenseSKBound(to)),
			},
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: ExpensesBetween query: %w", err)
		}
		for _, item := range out.Items {
			e, err := itemToExpense(item)
			if err != nil {
				return nil, fmt.Errorf("repository: ExpensesBetween unmarshal: %w", err)
			}
			if !e.At.Before(to) {
				continue
			}
			expenses = append(expenses, e)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return expenses, nil
		}
		start = out.LastEvaluatedKey
	}
}

func itemToExpense(item map[string]types.AttributeValue) (domain.Expense, error) {
	sk, err := strAttr(item, "SK")
	if err != nil {
		return domain.Expense{}, err
	}
	amt, err := floatAttr(item, "amount")
	if err != nil {
		return domain.Expense{}, err
	}
	at, err := timeAttr(item, "at")
	if err != nil {
		return domain.Expense{}, err
	}
	category, _ := strAttr(item, "category")
	it, _ := strAttr(item, "item")
	return domain.Expense{
		ID:       strings.TrimPrefix(sk, skPrefixExpense),
		Amount:   amt,
		Category: category,
		Item:     it,
		At:       at,
	}, nil
}
