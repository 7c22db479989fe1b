package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/clusterfs/clusterfs/internal/logger"
	"github.com/clusterfs/clusterfs/pkg/content"
	contentMemory "github.com/clusterfs/clusterfs/pkg/content/memory"
	contentS3 "github.com/clusterfs/clusterfs/pkg/content/s3"
	nativeBadger "github.com/clusterfs/clusterfs/pkg/native/badger"
	nativeMemory "github.com/clusterfs/clusterfs/pkg/native/memory"

	"github.com/clusterfs/clusterfs/pkg/native"
)

// CreateNativeClient builds the native client selected by the
// configuration.
//
// Supported types:
//   - "memory": in-process volatile cluster (pkg/native/memory)
//   - "badger": embedded persistent cluster (pkg/native/badger), backed
//     by the configured content store
func CreateNativeClient(ctx context.Context, cfg *NativeConfig) (native.Client, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryClient(cfg.Memory)
	case "badger":
		return createBadgerClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown native client type: %q", cfg.Type)
	}
}

func createMemoryClient(options map[string]any) (native.Client, error) {
	type MemoryClientConfig struct {
		Host        string `mapstructure:"host"`
		Replication int    `mapstructure:"replication"`
	}

	var clientCfg MemoryClientConfig
	if err := mapstructure.Decode(options, &clientCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory client config: %w", err)
	}

	var opts []nativeMemory.Option
	if clientCfg.Host != "" {
		opts = append(opts, nativeMemory.WithHost(clientCfg.Host))
	}
	if clientCfg.Replication > 0 {
		opts = append(opts, nativeMemory.WithReplication(clientCfg.Replication))
	}

	logger.Info("Memory native client created")
	return nativeMemory.New(opts...), nil
}

func createBadgerClient(ctx context.Context, cfg *NativeConfig) (native.Client, error) {
	type BadgerClientConfig struct {
		Dir         string `mapstructure:"dir"`
		Host        string `mapstructure:"host"`
		Replication int    `mapstructure:"replication"`
	}

	var clientCfg BadgerClientConfig
	if err := mapstructure.Decode(cfg.Badger, &clientCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger client config: %w", err)
	}
	if clientCfg.Dir == "" {
		return nil, fmt.Errorf("badger client: dir is required")
	}

	store, err := CreateContentStore(ctx, &cfg.Content)
	if err != nil {
		return nil, err
	}

	client, err := nativeBadger.New(nativeBadger.Config{
		Dir:         clientCfg.Dir,
		Content:     store,
		Host:        clientCfg.Host,
		Replication: clientCfg.Replication,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger client: %w", err)
	}

	logger.Info("Badger native client created: dir=%s, content=%s", clientCfg.Dir, cfg.Content.Type)
	return client, nil
}

// CreateContentStore builds the content store selected by the
// configuration.
//
// Supported types:
//   - "memory": process-memory storage (pkg/content/memory)
//   - "s3": Amazon S3 or compatible storage (pkg/content/s3)
func CreateContentStore(ctx context.Context, cfg *ContentConfig) (content.Store, error) {
	switch cfg.Type {
	case "memory":
		return contentMemory.New(), nil
	case "s3":
		return createS3ContentStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown content store type: %q", cfg.Type)
	}
}

func createS3ContentStore(ctx context.Context, options map[string]any) (content.Store, error) {
	type S3ContentStoreConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg S3ContentStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 content store config: %w", err)
	}
	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 content store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 content store: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Custom endpoint for MinIO, Localstack and friends.
	if storeCfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               storeCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials when provided, default chain otherwise.
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		// Path-style addressing for S3-compatible endpoints.
		if storeCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	store, err := contentS3.New(contentS3.Config{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 content store: %w", err)
	}

	logger.Info("S3 content store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)
	return store, nil
}
