package rekognition

import (
	"PPEGuard/internal/entity"
	"context"
	"errors"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/rekognition"
	"github.com/aws/aws-sdk-go/service/rekognition/rekognitioniface"
)

var ErrEmptyImage = errors.New("rekognition: empty image")

type ItfRekognition interface {
	DetectPersons(ctx context.Context, image []byte) ([]entity.PersonDetection, error)
}

type rekognitionClient struct {
	client rekognitioniface.RekognitionAPI
}

func New() (ItfRekognition, error) {
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

	return NewWithClient(rekognition.New(sess)), nil
}

func NewWithClient(client rekognitioniface.RekognitionAPI) ItfRekognition {
	return &rekognitionClient{client: client}
}

func (r *rekognitionClient) DetectPersons(ctx context.Context, image []byte) ([]entity.PersonDetection, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}

	out, err := r.client.DetectProtectiveEquipmentWithContext(ctx, &rekognition.DetectProtectiveEquipmentInput{
		Image: &rekognition.Image{Bytes: image},
	})
	if err != nil {
		return nil, err
	}

	return DecodeOutput(out), nil
}
