package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"jarvis-agent/internal/domain"
)

func expenseItem(sk, at string, amount float64, category, item string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":       strValue("CHAT#42"),
		"SK":       strValue(sk),
		"amount":   floatValue(amount),
		"category": strValue(category),
		"item":     strValue(item),
		"at":       strValue(at),
	}
}

func TestAddExpense_DefaultsCategory(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	e, err := c.AddExpense(context.Background(), "42", domain.Expense{Amount: 45.9, Item: "almoço"})
	require.NoError(t, err)
	require.Equal(t, domain.DefaultExpenseCategory, e.Category)
	require.Equal(t, fixedNow, e.At)
	require.Equal(t, "EXP#2026-10-15T12:00:00Z#0123456789abcdef", sVal(t, db.lastPutInput.Item, "SK"))
	require.Equal(t, "45.9", db.lastPutInput.Item["amount"].(*types.AttributeValueMemberN).Value)
	require.Equal(t, "almoço", sVal(t, db.lastPutInput.Item, "item"))
}

func TestAddExpense_RejectsNonPositiveAmount(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	_, err := c.AddExpense(context.Background(), "42", domain.Expense{Amount: 0})
	require.ErrorContains(t, err, "amount")
	require.Nil(t, db.lastPutInput)
}

func TestAddExpense_DynamoError(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{putErr: errors.New("boom")})
	_, err := c.AddExpense(context.Background(), "42", domain.Expense{Amount: 1})
	require.ErrorContains(t, err, "AddExpense")
}

func TestExpensesBetween_UsesSortKeyRange(t *testing.T) {
	db := &fakeDynamo{queryOuts: []*dynamodb.QueryOutput{{
		Items: []map[string]types.AttributeValue{
			expenseItem("EXP#2026-10-02T10:00:00Z#a", "2026-10-02T10:00:00Z", 45.9, "outros", "almoço"),
			expenseItem("EXP#2026-10-05T10:00:00Z#b", "2026-10-05T10:00:00Z", 100, "mercado", "feira"),
		},
	}}}
	c := mustNewClient(t, db)
	from := time.Date(2026, 10, 1, 3, 0, 0, 0, time.UTC)
	to := time.Date(2026, 11, 1, 3, 0, 0, 0, time.UTC)

	got, err := c.ExpensesBetween(context.Background(), "42", from, to)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.InDelta(t, 45.9, got[0].Amount, 1e-9)
	require.Equal(t, "mercado", got[1].Category)

	in := db.queryInputs[0]
	require.Equal(t, "PK = :pk AND SK BETWEEN :from AND :to", *in.KeyConditionExpression)
	require.Equal(t, "EXP#2026-10-01T03:00:00Z", in.ExpressionAttributeValues[":from"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "EXP#2026-11-01T03:00:00Z", in.ExpressionAttributeValues[":to"].(*types.AttributeValueMemberS).Value)
}

func TestExpensesBetween_EmptyRange(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	got, err := c.ExpensesBetween(context.Background(), "42", fixedNow, fixedNow)
	require.NoError(t, err)
	require.Empty(t, got)
	require.Empty(t, db.queryInputs)
}

func TestExpensesBetween_MalformedAmount(t *testing.T) {
	bad := expenseItem("EXP#x", "2026-10-02T10:00:00Z", 1, "outros", "x")
	bad["amount"] = strValue("abc")
	c := mustNewClient(t, &fakeDynamo{queryOuts: []*dynamodb.QueryOutput{{Items: []map[string]types.AttributeValue{bad}}}})
	_, err := c.ExpensesBetween(context.Background(), "42", fixedNow.Add(-time.Hour*24*30), fixedNow)
	require.ErrorContains(t, err, "not a number")
}
