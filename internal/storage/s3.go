package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	defaultTimeout = 30 * time.Second
	uploadTimeout  = 10 * time.Minute
)

// Client реализует Storage поверх S3-совместимого хранилища.
// Каталоги моделируются пустыми объектами с ключом "path/".
type Client struct {
	client *s3.Client
	bucket string
}

// NewClient создает новый экземпляр клиента S3
func NewClient(conf *Config) (*Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.AccessKeyID,
		conf.SecretAccessKey,
		"",
	))

	opts := s3.Options{
		Region:           conf.Region,
		Credentials:      creds,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
	}
	if conf.Endpoint != "" {
		opts.BaseEndpoint = aws.String(conf.Endpoint)
		opts.UsePathStyle = true
	}

	client := &Client{
		client: s3.New(opts),
		bucket: conf.Bucket,
	}

	// Проверяем подключение к бакету
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := client.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(conf.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to access bucket %s: %w", conf.Bucket, err)
	}

	return client, nil
}

func (c *Client) head(ctx context.Context, key string) (bool, error) {
	_, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object %s: %w", key, err)
	}
	return true, nil
}

func (c *Client) Exists(ctx context.Context, path string) (bool, error) {
	ok, err := c.head(ctx, path)
	if err != nil || ok {
		return ok, err
	}
	// Объекта нет - проверяем маркер каталога
	return c.head(ctx, path+"/")
}

func (c *Client) Read(ctx context.Context, path string) ([]byte, error) {
	result, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("object not found: %s", path)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

func (c *Client) Write(ctx context.Context, dir, filename string, data []byte) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename is required")
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	key := dir + "/" + filename
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload data to S3: %w", err)
	}

	return key, nil
}

func (c *Client) Delete(ctx context.Context, path string) error {
	// Отсутствующий объект считаем уже удаленным
	ok, err := c.head(ctx, path)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	_, err = c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}

func (c *Client) Move(ctx context.Context, oldPath, newPath string) error {
	moved := false

	// Сам объект, если он есть
	ok, err := c.head(ctx, oldPath)
	if err != nil {
		return err
	}
	if ok {
		if err := c.copyAndDelete(ctx, oldPath, newPath); err != nil {
			return err
		}
		moved = true
	}

	// Содержимое каталога вместе с маркером
	keys, err := c.listPrefix(ctx, oldPath+"/")
	if err != nil {
		return err
	}
	for _, key := range keys {
		newKey := newPath + "/" + strings.TrimPrefix(key, oldPath+"/")
		if key == oldPath+"/" {
			newKey = newPath + "/"
		}
		if err := c.copyAndDelete(ctx, key, newKey); err != nil {
			return err
		}
		moved = true
	}

	if !moved {
		return fmt.Errorf("object not found: %s", oldPath)
	}
	return nil
}

func (c *Client) copyAndDelete(ctx context.Context, oldKey, newKey string) error {
	_, err := c.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(c.bucket),
		CopySource: aws.String(c.bucket + "/" + oldKey),
		Key:        aws.String(newKey),
	})
	if err != nil {
		return fmt.Errorf("failed to copy object %s: %w", oldKey, err)
	}

	_, err = c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(oldKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s after copy: %w", oldKey, err)
	}
	return nil
}

func (c *Client) MakeDirectory(ctx context.Context, path string) error {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(path + "/"),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return fmt.Errorf("failed to create directory marker: %w", err)
	}
	return nil
}

func (c *Client) DeleteDirectory(ctx context.Context, path string) error {
	keys, err := c.listPrefix(ctx, path+"/")
	if err != nil {
		return err
	}

	for _, key := range keys {
		_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("failed to delete object %s: %w", key, err)
		}
	}
	return nil
}

func (c *Client) listPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var token *string

	for {
		result, err := c.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(c.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list objects with prefix %s: %w", prefix, err)
		}

		for _, obj := range result.Contents {
			keys = append(keys, *obj.Key)
		}

		if result.IsTruncated == nil || !*result.IsTruncated {
			break
		}
		token = result.NextContinuationToken
	}

	return keys, nil
}
