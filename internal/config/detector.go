package config

import (
	ppePkg "PPEGuard/pkg/ppe"
	rekognitionPkg "PPEGuard/pkg/rekognition"
	websocketPkg "PPEGuard/pkg/websocket"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// NewDetector builds the inference backend named by INFERENCE_BACKEND (rekognition by default).
func NewDetector(logger *logrus.Logger) (ppePkg.Detector, error) {
	switch backend := os.Getenv("INFERENCE_BACKEND"); backend {
	case "websocket":
		return websocketPkg.NewAIWebSocketClient(logger), nil
	case "", "rekognition":
		client, err := rekognitionPkg.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create Rekognition client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown INFERENCE_BACKEND %q", backend)
	}
}
