package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stockslurp/stockslurp/internal/compression"
	"github.com/stockslurp/stockslurp/internal/secrets"
)

type S3Sink struct {
	bucket            string
	prefix            string
	region            string
	compression       string
	secrets           *secrets.Store
	endpoint          string
	accessKeyIDSecret string
	accessKeySecret   string
	disableChecksums  bool

	Client PutObjectAPI // test only; nil in prod, set by test
}

// PutObjectAPI abstracts the S3 PutObject method (for testing)
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func NewS3Sink(opts map[string]interface{}, secrets *secrets.Store) (Sink, error) {
	bucket, _ := opts["bucket"].(string)
	prefix, _ := opts["prefix"].(string)
	region, _ := opts["region"].(string)
	compression, _ := opts["compression"].(string)
	endpoint, _ := opts["endpoint"].(string)

	// Names of the secrets holding the credentials, overridable per job.
	accessKeyIDSecret, _ := opts["access_key_id_secret"].(string)
	if accessKeyIDSecret == "" {
		accessKeyIDSecret = "AWS_ACCESS_KEY_ID"
	}
	accessKeySecret, _ := opts["access_key_secret"].(string)
	if accessKeySecret == "" {
		accessKeySecret = "AWS_SECRET_ACCESS_KEY"
	}

	var disableChecksums bool
	if v, ok := opts["disable_checksums"]; ok {
		disableChecksums = toBool(v)
	}

	if bucket == "" || region == "" {
		return nil, fmt.Errorf("s3 sink requires 'bucket' and 'region' options")
	}

	return &S3Sink{
		bucket:            bucket,
		prefix:            prefix,
		region:            region,
		compression:       compression,
		secrets:           secrets,
		endpoint:          endpoint,
		accessKeyIDSecret: accessKeyIDSecret,
		accessKeySecret:   accessKeySecret,
		disableChecksums:  disableChecksums,
	}, nil
}

func (s *S3Sink) Open(ctx context.Context, name string) (SinkWriter, error) {
	client := s.Client
	if client == nil {
		real, err := s.newClient(ctx)
		if err != nil {
			return nil, err
		}
		client = real
	}

	key := buildKey(s.prefix, name)
	pr, pw := io.Pipe()
	go func() {
		defer pr.Close()
		_, err := client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: &s.bucket,
			Key:    &key,
			Body:   pr,
		})
		if err != nil {
			_ = pr.CloseWithError(err)
		}
	}()
	w, err := compression.NewWriter(pw, s.compression)
	if err != nil {
		return nil, err
	}
	return &pipeSinkWriter{Writer: w, Closer: pw}, nil
}

func (s *S3Sink) newClient(ctx context.Context) (PutObjectAPI, error) {
	accessKey, err := s.secrets.Get(ctx, s.accessKeyIDSecret)
	if err != nil {
		return nil, fmt.Errorf("missing %s: %w", s.accessKeyIDSecret, err)
	}
	secretKey, err := s.secrets.Get(ctx, s.accessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("missing %s: %w", s.accessKeySecret, err)
	}
	awsCfgOpts := []func(*config.LoadOptions) error{
		config.WithRegion(s.region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(string(accessKey), string(secretKey), ""),
		),
	}
	if s.disableChecksums {
		awsCfgOpts = append(awsCfgOpts, config.WithRequestChecksumCalculation(0))
		awsCfgOpts = append(awsCfgOpts, config.WithResponseChecksumValidation(0))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, awsCfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("aws config load error: %w", err)
	}
	s3Opts := []func(*s3.Options){}
	if s.endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &s.endpoint
		})
	}
	return s3.NewFromConfig(awsCfg, s3Opts...), nil
}

func init() {
	Register("s3", NewS3Sink)
}
