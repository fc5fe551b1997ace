package song

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/google/uuid"
	"github.com/jsphweid/harmonybeat/model"
	"github.com/pkg/errors"
)

// the song itself is kept as JSON so it round-trips exactly
type dynamoItem struct {
	PK         string `dynamodbav:"PK"`
	Name       string `dynamodbav:"Name"`
	RecordedAt int64  `dynamodbav:"RecordedAt"`
	Song       string `dynamodbav:"Song"`
}

type DynamoStore struct {
	client dynamodbiface.DynamoDBAPI
	table  string
}

// NewDynamoStore talks to a local DynamoDB at endpoint.
func NewDynamoStore(endpoint, table string) (*DynamoStore, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:   aws.String("localhost"),
		Endpoint: &endpoint,
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not create a new DynamoDB session")
	}
	return NewDynamoStoreWithClient(dynamodb.New(sess), table), nil
}

func NewDynamoStoreWithClient(client dynamodbiface.DynamoDBAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

func (d *DynamoStore) key(id string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		"PK": {S: aws.String(id)},
	}
}

func (d *DynamoStore) Put(ctx context.Context, s model.Song) (model.Song, error) {
	if err := s.Validate(); err != nil {
		return model.Song{}, err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	data, err := json.Marshal(s)
	if err != nil {
		return model.Song{}, err
	}
	item, err := dynamodbattribute.MarshalMap(dynamoItem{
		PK:         s.ID,
		Name:       s.Name,
		RecordedAt: s.RecordedAt,
		Song:       string(data),
	})
	if err != nil {
		return model.Song{}, err
	}
	_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return model.Song{}, errors.Wrap(err, "error from DynamoDB")
	}
	return s, nil
}

func decodeItem(item map[string]*dynamodb.AttributeValue) (model.Song, error) {
	var di dynamoItem
	if err := dynamodbattribute.UnmarshalMap(item, &di); err != nil {
		return model.Song{}, err
	}
	var s model.Song
	if err := json.Unmarshal([]byte(di.Song), &s); err != nil {
		return model.Song{}, errors.Wrapf(err, "decoding song %s", di.PK)
	}
	s.ID = di.PK
	return s, nil
}

func (d *DynamoStore) Get(ctx context.Context, id string) (model.Song, error) {
	out, err := d.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key:       d.key(id),
	})
	if err != nil {
		return model.Song{}, errors.Wrap(err, "error from DynamoDB")
	}
	if len(out.Item) == 0 {
		return model.Song{}, ErrNotFound
	}
	return decodeItem(out.Item)
}

func (d *DynamoStore) List(ctx context.Context) ([]model.Song, error) {
	var res []model.Song
	var decodeErr error
	err := d.client.ScanPagesWithContext(ctx, &dynamodb.ScanInput{
		TableName: aws.String(d.table),
	}, func(page *dynamodb.ScanOutput, lastPage bool) bool {
		for _, item := range page.Items {
			s, err := decodeItem(item)
			if err != nil {
				decodeErr = err
				return false
			}
			res = append(res, s)
		}
		return true
	})
	if err != nil {
		return nil, errors.Wrap(err, "error from DynamoDB")
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	sortSongs(res)
	return res, nil
}

func (d *DynamoStore) Delete(ctx context.Context, id string) error {
	out, err := d.client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(d.table),
		Key:          d.key(id),
		ReturnValues: aws.String(dynamodb.ReturnValueAllOld),
	})
	if err != nil {
		return errors.Wrap(err, "error from DynamoDB")
	}
	if len(out.Attributes) == 0 {
		return ErrNotFound
	}
	return nil
}
