package rekognition

import (
	"PPEGuard/internal/entity"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/rekognition"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DecodePayload parses a DetectProtectiveEquipment response body, as returned by Rekognition
// or by a remote service speaking the same shape.
func DecodePayload(data []byte) ([]entity.PersonDetection, error) {
	var out rekognition.DetectProtectiveEquipmentOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return DecodeOutput(&out), nil
}

// DecodeOutput converts the SDK output into detections. Absent fields decode to zero values,
// unknown body parts and equipment types to their Unknown/Unrecognized variants.
func DecodeOutput(out *rekognition.DetectProtectiveEquipmentOutput) []entity.PersonDetection {
	persons := make([]entity.PersonDetection, 0)
	if out == nil {
		return persons
	}

	for i, p := range out.Persons {
		if p == nil {
			continue
		}
		id := int64(i)
		if p.Id != nil {
			id = aws.Int64Value(p.Id)
		}

		person := entity.PersonDetection{
			TrackingID: id,
			Box:        decodeBox(p.BoundingBox),
			BodyParts:  make([]entity.BodyPartDetection, 0, len(p.BodyParts)),
		}
		for _, bp := range p.BodyParts {
			if bp == nil {
				continue
			}
			person.BodyParts = append(person.BodyParts, decodeBodyPart(bp))
		}
		persons = append(persons, person)
	}
	return persons
}

func decodeBodyPart(bp *rekognition.ProtectiveEquipmentBodyPart) entity.BodyPartDetection {
	part := entity.BodyPartDetection{
		Name:                entity.ParseBodyPart(aws.StringValue(bp.Name)),
		DetectionConfidence: aws.Float64Value(bp.Confidence),
		Equipment:           make([]entity.EquipmentDetection, 0, len(bp.EquipmentDetections)),
	}
	for _, eq := range bp.EquipmentDetections {
		if eq == nil {
			continue
		}
		raw := aws.StringValue(eq.Type)
		detection := entity.EquipmentDetection{
			RawType:    raw,
			Type:       entity.ParseEquipmentType(raw),
			Confidence: aws.Float64Value(eq.Confidence),
			Box:        decodeBox(eq.BoundingBox),
		}
		if eq.CoversBodyPart != nil {
			detection.Covers = aws.BoolValue(eq.CoversBodyPart.Value)
			detection.CoversConfidence = aws.Float64Value(eq.CoversBodyPart.Confidence)
		}
		part.Equipment = append(part.Equipment, detection)
	}
	return part
}

func decodeBox(box *rekognition.BoundingBox) entity.Rect {
	if box == nil {
		return entity.Rect{}
	}
	return entity.Rect{
		Left:   aws.Float64Value(box.Left),
		Top:    aws.Float64Value(box.Top),
		Width:  aws.Float64Value(box.Width),
		Height: aws.Float64Value(box.Height),
	}
}
