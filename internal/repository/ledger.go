package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	pkPrefixInbound = "INBOUND#"
	skClaim         = "CLAIM#"

	StatusProcessing = "processing"
	StatusComplete   = "complete"

	DefaultLedgerTTL = 24 * time.Hour
	// DefaultClaimLease bounds how long a processing claim blocks redeliveries.
	// It matches the longest Lambda timeout.
	DefaultClaimLease = 15 * time.Minute

	claimCondition = "attribute_not_exists(PK) OR (#status = :processing AND claimedAt < :leaseCutoff) OR #ttl < :now"
)

// ErrAlreadyClaimed is returned by Claim when the message id is already in the ledger.
var ErrAlreadyClaimed = errors.New("repository: message already claimed")

// dynamodbAPI is the minimal DynamoDB interface required by Ledger.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Ledger records inbound carrier message ids so webhook redeliveries are
// processed once.
type Ledger struct {
	api       dynamodbAPI
	tableName string
	ttl       time.Duration
	lease     time.Duration
	now       func() time.Time
}

// NewLedger builds a ledger on tableName. ttl is how long entries are kept;
// lease is how long a processing claim is honoured before a redelivery may
// take it over. Zero values select the defaults.
func NewLedger(api dynamodbAPI, tableName string, ttl, lease time.Duration) (*Ledger, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultLedgerTTL
	}
	if lease <= 0 {
		lease = DefaultClaimLease
	}
	return &Ledger{api: api, tableName: tableName, ttl: ttl, lease: lease, now: time.Now}, nil
}

func inboundPK(messageID string) string {
	return pkPrefixInbound + messageID
}

func (l *Ledger) key(messageID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: inboundPK(messageID)},
		"SK": &types.AttributeValueMemberS{Value: skClaim},
	}
}

// Claim inserts a processing entry for messageID. It returns ErrAlreadyClaimed
// when a completed entry or a processing entry younger than the lease exists.
// Expired entries that DynamoDB has not yet deleted are overwritten.
func (l *Ledger) Claim(ctx context.Context, messageID string) error {
	if strings.TrimSpace(messageID) == "" {
		return errors.New("repository: Claim: message id is required")
	}
	now := l.now().UTC()
	_, err := l.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.tableName),
		Item: map[string]types.AttributeValue{
			"PK":        &types.AttributeValueMemberS{Value: inboundPK(messageID)},
			"SK":        &types.AttributeValueMemberS{Value: skClaim},
			"messageId": &types.AttributeValueMemberS{Value: messageID},
			"status":    &types.AttributeValueMemberS{Value: StatusProcessing},
			"claimedAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			"ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(l.ttl).Unix(), 10)},
		},
		ConditionExpression: aws.String(claimCondition),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
			"#ttl":    "ttl",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":processing":  &types.AttributeValueMemberS{Value: StatusProcessing},
			":leaseCutoff": &types.AttributeValueMemberS{Value: now.Add(-l.lease).Format(time.RFC3339)},
			":now":         &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
		},
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return ErrAlreadyClaimed
	}
	if err != nil {
		return fmt.Errorf("repository: Claim: %w", err)
	}
	return nil
}

// Complete marks a claimed message as processed and records the reply id.
func (l *Ledger) Complete(ctx context.Context, messageID, replyID string) error {
	_, err := l.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(l.tableName),
		Key:              l.key(messageID),
		UpdateExpression: aws.String("SET #status = :status, replyId = :reply, completedAt = :at"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: StatusComplete},
			":reply":  &types.AttributeValueMemberS{Value: replyID},
			":at":     &types.AttributeValueMemberS{Value: l.now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: Complete: %w", err)
	}
	return nil
}

// Release drops the claim so a later redelivery is processed again.
func (l *Ledger) Release(ctx context.Context, messageID string) error {
	_, err := l.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.tableName),
		Key:       l.key(messageID),
	})
	if err != nil {
		return fmt.Errorf("repository: Release: %w", err)
	}
	return nil
}

// Status returns the ledger status of messageID, or "" when it was never claimed.
func (l *Ledger) Status(ctx context.Context, messageID string) (string, error) {
	out, err := l.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(l.tableName),
		Key:            l.key(messageID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("repository: Status get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return "", nil
	}
	status, err := strAttr(out.Item, "status")
	if err != nil {
		return "", fmt.Errorf("repository: Status decode: %w", err)
	}
	return status, nil
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
