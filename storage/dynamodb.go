package storage

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DynamoDBStore is an implementation of Store backed by a DynamoDB table with
// binary hash key "k". Values go in attribute "va" and deadlines, in Unix
// seconds, in attribute "exp". The table's time-to-live attribute should be
// set to "exp"; DynamoDB deletes expired items some time after their
// deadline, so Get also checks it.
//
// DynamoDB items are limited to 400 KB, so larger values fail to put.
type DynamoDBStore struct {
	profile string
	region  string
	table   string
	opts    options

	// Do throttling on our side based on configured RCUs/WCUs so the
	// client doesn't have to retry.
	getLimiter *rate.Limiter
	putLimiter *rate.Limiter

	ddb *dynamodb.DynamoDB
}

func NewDynamoDBStore(profile, region, table string, opts ...Option) (*DynamoDBStore, error) {
	s := &DynamoDBStore{
		profile: profile,
		region:  region,
		table:   table,
		opts:    newOptions(opts),
	}
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(s.region),
		Credentials: credentials.NewSharedCredentials("", s.profile),
	})
	if err != nil {
		return nil, err
	}
	s.ddb = dynamodb.New(sess)
	if err := s.configureLimiters(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DynamoDBStore) configureLimiters() error {
	result, err := s.ddb.DescribeTable(&dynamodb.DescribeTableInput{
		TableName: &s.table,
	})
	if err != nil {
		return err
	}
	// On-demand tables report zero provisioned capacity, which
	// perSecondLimiter turns into no limit. Items larger than 1 kB consume
	// several units, so this only bounds the request rate.
	var rcus, wcus int64
	if pt := result.Table.ProvisionedThroughput; pt != nil {
		rcus = aws.Int64Value(pt.ReadCapacityUnits)
		wcus = aws.Int64Value(pt.WriteCapacityUnits)
	}
	s.getLimiter = perSecondLimiter(float64(rcus))
	s.putLimiter = perSecondLimiter(float64(wcus))
	log.WithFields(log.Fields{
		"table": s.table,
		"rcus":  rcus,
		"wcus":  wcus,
	}).Debug("Configured DynamoDB limiters")
	return nil
}

func (s *DynamoDBStore) Put(key, value []byte, ttl time.Duration) (err error) {
	deadline := s.opts.now().Add(ttl)
	var input dynamodb.PutItemInput
	input.TableName = &s.table
	input.Item = map[string]*dynamodb.AttributeValue{
		"k":   ddbBinary(key),
		"va":  ddbBinary(value),
		"exp": ddbNumber(deadline.Unix()),
	}
	time.Sleep(s.putLimiter.Reserve().Delay())
	if _, err = s.ddb.PutItem(&input); err != nil {
		return fmt.Errorf("could not put %.10x with %d bytes: %w", key, len(value), err)
	}
	return nil
}

func (s *DynamoDBStore) Get(key []byte) (value []byte, err error) {
	var input dynamodb.GetItemInput
	input.TableName = &s.table
	input.Key = map[string]*dynamodb.AttributeValue{
		"k": ddbBinary(key),
	}
	time.Sleep(s.getLimiter.Reserve().Delay())
	output, err := s.ddb.GetItem(&input)
	if err != nil {
		if e, ok := err.(awserr.Error); ok {
			if e.Code() == dynamodb.ErrCodeResourceNotFoundException {
				return nil, fmt.Errorf("%v: %w", e, ErrNotFound)
			}
		}
		return nil, err
	}
	if output.Item == nil {
		return nil, fmt.Errorf("%.10x: %w", key, ErrNotFound)
	}
	if exp, ok := output.Item["exp"]; ok && exp.N != nil {
		// Trusting this to be a number.
		secs, _ := strconv.ParseInt(*exp.N, 10, 64)
		if expired(time.Unix(secs, 0), s.opts.now()) {
			return nil, fmt.Errorf("%.10x: expired: %w", key, ErrNotFound)
		}
	}
	var va []byte
	if attr, ok := output.Item["va"]; ok {
		va = attr.B
	}
	return dup(va), nil
}

func ddbBinary(b []byte) *dynamodb.AttributeValue {
	return &dynamodb.AttributeValue{
		B: dup(b),
	}
}

func ddbNumber(n int64) *dynamodb.AttributeValue {
	return &dynamodb.AttributeValue{
		N: aws.String(strconv.FormatInt(n, 10)),
	}
}
