package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var r2Client *s3.Client
var r2Bucket string
var cdnBaseURL string

// InitR2 configures the object-storage client for listing photos. When the
// R2 env vars are absent the client stays nil and uploads fall back to local
// disk under ./uploads (dev mode) — see UploadPhoto.
func InitR2() error {
	accountID := os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	accessKeyID := os.Getenv("R2_ACCESS_KEY_ID")
	accessKeySecret := os.Getenv("R2_ACCESS_KEY_SECRET")
	r2Bucket = os.Getenv("R2_BUCKET_NAME")

	if accountID == "" || accessKeyID == "" || accessKeySecret == "" || r2Bucket == "" {
		log.Println("⚠️  R2 not configured — photos will be stored locally under ./uploads")
		return nil
	}

	cdnBaseURL = os.Getenv("CDN_BASE_URL")
	if cdnBaseURL == "" {
		cdnBaseURL = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, accessKeySecret, "",
		)),
		config.WithEndpointResolver(aws.EndpointResolverFunc(
			func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID),
				}, nil
			}),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to load R2 config: %w", err)
	}

	r2Client = s3.NewFromConfig(cfg)
	return nil
}

// R2Enabled reports whether object storage is configured.
func R2Enabled() bool { return r2Client != nil }

// UploadPhoto stores an uploaded photo under key and returns its public URL.
// R2 when configured, local ./uploads otherwise.
func UploadPhoto(fileHeader *multipart.FileHeader, key string) (string, error) {
	if !R2Enabled() {
		destPath := GetUploadPath(key)
		if err := SaveFile(fileHeader, destPath); err != nil {
			return "", fmt.Errorf("failed to save photo locally: %w", err)
		}
		return "/" + destPath, nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return putObject(key, buf, fileHeader.Header.Get("Content-Type"))
}

// UploadBytes stores raw bytes (e.g. a photo fetched from a URL) under key.
func UploadBytes(data []byte, key, contentType string) (string, error) {
	if !R2Enabled() {
		destPath := GetUploadPath(key)
		if err := SaveBytes(data, destPath); err != nil {
			return "", fmt.Errorf("failed to save photo locally: %w", err)
		}
		return "/" + destPath, nil
	}
	return putObject(key, bytes.NewReader(data), contentType)
}

func putObject(key string, body io.Reader, contentType string) (string, error) {
	_, err := r2Client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(r2Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return fmt.Sprintf("%s/%s", cdnBaseURL, key), nil
}
