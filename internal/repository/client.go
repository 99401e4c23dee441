package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Single-table layout, one partition per conversation:
//
//	PK=CHAT#<id>  SK=META#                    context fields, last activity
//	PK=CHAT#<id>  SK=TURN#<ts>#<n>            rolling history
//	PK=CHAT#<id>  SK=EVT#<event id>           processed-event markers
//	PK=CHAT#<id>  SK=TASK#<ts>#<uuid>         tasks
//	PK=CHAT#<id>  SK=EXP#<ts>#<uuid>          expenses
const (
	pkPrefixChat    = "CHAT#"
	skMeta          = "META#"
	skPrefixTurn    = "TURN#"
	skPrefixEvent   = "EVT#"
	skPrefixTask    = "TASK#"
	skPrefixExpense = "EXP#"

	defaultTurnTTL      = 30 * 24 * time.Hour
	defaultProcessedTTL = 7 * 24 * time.Hour

	// expense sort keys use a fixed-width UTC layout so BETWEEN works lexically.
	expenseTimeLayout = "2006-01-02T15:04:05Z"

	batchWriteLimit = 25
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Client wraps a DynamoDB table holding every conversation's state.
type Client struct {
	api          dynamodbAPI
	tableName    string
	turnTTL      time.Duration
	processedTTL time.Duration
	now          func() time.Time
	newID        func() string
}

type Option func(*Client)

// WithTurnTTL sets how long history turns live before DynamoDB expires them.
func WithTurnTTL(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.turnTTL = d
		}
	}
}

// WithProcessedTTL sets how long processed-event markers are kept.
func WithProcessedTTL(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.processedTTL = d
		}
	}
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	c := &Client{
		api:          api,
		tableName:    tableName,
		turnTTL:      defaultTurnTTL,
		processedTTL: defaultProcessedTTL,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        newUUID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func chatPK(conversationID string) string {
	return pkPrefixChat + conversationID
}

func metaKey(conversationID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": strValue(chatPK(conversationID)),
		"SK": strValue(skMeta),
	}
}

func strValue(s string) *types.AttributeValueMemberS {
	return &types.AttributeValueMemberS{Value: s}
}

func intValue(n int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func floatValue(f float64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatFloat(f, 'f', -1, 64)}
}

func ttlAt(now time.Time, d time.Duration) *types.AttributeValueMemberN {
	return intValue(now.Add(d).Unix())
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func floatAttr(item map[string]types.AttributeValue, key string) (float64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

func timeAttr(item map[string]types.AttributeValue, key string) (time.Time, error) {
	s, err := strAttr(item, key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return t, nil
}
