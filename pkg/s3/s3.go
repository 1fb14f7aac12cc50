package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

const reportPrefix = "ppe-reports/"

// ItfS3 archives session reports.
type ItfS3 interface {
	UploadReport(ctx context.Context, sessionID string, report []byte) (string, error)
	PresignUrl(fileUrl string) (string, error)
	DeleteFile(fileUrl string) error
}

type s3Client struct {
	client     *s3.S3
	uploader   *s3manager.Uploader
	bucketName string
}

func New() (ItfS3, error) {
	sess, err := newSession()
	if err != nil {
		return nil, err
	}

	return &s3Client{
		client:     s3.New(sess),
		uploader:   s3manager.NewUploader(sess),
		bucketName: os.Getenv("AWS_BUCKET_NAME"),
	}, nil
}

func (s *s3Client) UploadReport(ctx context.Context, sessionID string, report []byte) (string, error) {
	uploadOutput, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(ReportKey(sessionID)),
		Body:        bytes.NewReader(report),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", err
	}

	return uploadOutput.Location, nil
}

func (s *s3Client) PresignUrl(fileUrl string) (string, error) {
	decodedKey, err := url.QueryUnescape(extractKeyFromS3Url(fileUrl))
	if err != nil {
		return "", fmt.Errorf("failed to decode S3 key: %w", err)
	}

	_, err = s.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(decodedKey),
	})
	if err != nil {
		return "", fmt.Errorf("file does not exist: %w", err)
	}

	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(decodedKey),
	})

	urlStr, err := req.Presign(15 * time.Minute)
	if err != nil {
		return "", err
	}

	return urlStr, nil
}

func (s *s3Client) DeleteFile(fileUrl string) error {
	decodedKey, err := url.QueryUnescape(extractKeyFromS3Url(fileUrl))
	if err != nil {
		return fmt.Errorf("failed to decode filename: %w", err)
	}

	_, err = s.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(decodedKey),
	})

	return err
}

func ReportKey(sessionID string) string {
	return fmt.Sprintf("%s%s.json", reportPrefix, sessionID)
}

func extractKeyFromS3Url(fileUrl string) string {
	parts := strings.Split(fileUrl, ".com/")
	if len(parts) > 1 {
		return parts[1]
	}
	return fileUrl
}

func newSession() (*session.Session, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(os.Getenv("AWS_REGION")),
		Credentials: credentials.NewStaticCredentials(
			os.Getenv("AWS_ACCESS_KEY_ID"),
			os.Getenv("AWS_SECRET_ACCESS_KEY"),
			"",
		),
	})

	if err != nil {
		return nil, err
	}

	return sess, nil
}
