package storage

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	log "github.com/sirupsen/logrus"
)

// Object metadata key carrying the deadline in Unix nanoseconds. S3 has no
// per-object expiry; physical deletion is left to a bucket lifecycle rule,
// and Get hides objects past their deadline in the meantime.
const s3ExpiresKey = "Netbolt-Expires"

// S3 is an implementation of Store backed by AWS S3.
type S3 struct {
	profile string
	region  string
	bucket  string
	opts    options

	mu     sync.Mutex
	client *s3.S3
}

func NewS3(profile, region, bucket string, opts ...Option) *S3 {
	return &S3{
		profile: profile,
		region:  region,
		bucket:  bucket,
		opts:    newOptions(opts),
	}
}

func (s *S3) Get(key []byte) (value []byte, err error) {
	client, err := s.ensureClient()
	if err != nil {
		return nil, err
	}
	hexKey := fmt.Sprintf("%x", key)
	output, err := client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(hexKey),
	})
	if err != nil {
		if rfErr, ok := err.(awserr.RequestFailure); ok {
			if rfErr.StatusCode() == http.StatusNotFound {
				return nil, fmt.Errorf("%q: %w", key, ErrNotFound)
			}
		}
		return nil, err
	}
	defer func() {
		if err := output.Body.Close(); err != nil {
			log.WithFields(log.Fields{
				"op":  "get",
				"key": hexKey,
			}).Warning("Could not close response body")
		}
	}()
	if deadline, ok := s3Deadline(output.Metadata); ok && expired(deadline, s.opts.now()) {
		return nil, fmt.Errorf("%q: expired: %w", key, ErrNotFound)
	}
	value, err = io.ReadAll(output.Body)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *S3) Put(key, value []byte, ttl time.Duration) (err error) {
	client, err := s.ensureClient()
	if err != nil {
		return err
	}
	deadline := s.opts.now().Add(ttl)
	hexKey := fmt.Sprintf("%x", key)
	_, err = client.PutObject(&s3.PutObjectInput{
		Bucket:  aws.String(s.bucket),
		Key:     aws.String(hexKey),
		Body:    bytes.NewReader(value),
		Expires: aws.Time(deadline),
		Metadata: map[string]*string{
			s3ExpiresKey: aws.String(strconv.FormatInt(deadline.UnixNano(), 10)),
		},
	})
	return err
}

func s3Deadline(metadata map[string]*string) (time.Time, bool) {
	v, ok := metadata[s3ExpiresKey]
	if !ok || v == nil {
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(*v, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, n), true
}

func (s *S3) ensureClient() (*s3.S3, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(s.region),
		Credentials: credentials.NewSharedCredentials("", s.profile),
	})
	if err != nil {
		return nil, err
	}
	s.client = s3.New(sess)
	return s.client, nil
}
