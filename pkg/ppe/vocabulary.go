package ppe

import (
	"PPEGuard/internal/entity"
	"strings"
)

type Locale string

const (
	LocaleES Locale = "es"
	LocaleEN Locale = "en"
)

func ParseLocale(raw string) Locale {
	switch Locale(strings.ToLower(strings.TrimSpace(raw))) {
	case LocaleEN:
		return LocaleEN
	default:
		return LocaleES
	}
}

// requiredEquipment lists the accepted aliases per body part. The first alias is the canonical one.
var requiredEquipment = map[entity.BodyPart][]entity.EquipmentType{
	entity.BodyPartFace:      {entity.EquipmentMask, entity.EquipmentFaceCover},
	entity.BodyPartHead:      {entity.EquipmentHelmet, entity.EquipmentHeadCover},
	entity.BodyPartLeftHand:  {entity.EquipmentGlove, entity.EquipmentHandCover},
	entity.BodyPartRightHand: {entity.EquipmentGlove, entity.EquipmentHandCover},
}

var equipmentLabels = map[Locale]map[entity.EquipmentType]string{
	LocaleES: {
		entity.EquipmentMask:      "Mascarilla",
		entity.EquipmentFaceCover: "Cubrebocas",
		entity.EquipmentHelmet:    "Casco",
		entity.EquipmentHeadCover: "Casco",
		entity.EquipmentGlove:     "Guante",
		entity.EquipmentHandCover: "Guante",
	},
	LocaleEN: {
		entity.EquipmentMask:      "Mask",
		entity.EquipmentFaceCover: "Face cover",
		entity.EquipmentHelmet:    "Helmet",
		entity.EquipmentHeadCover: "Helmet",
		entity.EquipmentGlove:     "Glove",
		entity.EquipmentHandCover: "Glove",
	},
}

var bodyPartLabels = map[Locale]map[entity.BodyPart]string{
	LocaleES: {
		entity.BodyPartFace:      "cara",
		entity.BodyPartHead:      "cabeza",
		entity.BodyPartLeftHand:  "mano izquierda",
		entity.BodyPartRightHand: "mano derecha",
	},
	LocaleEN: {
		entity.BodyPartFace:      "face",
		entity.BodyPartHead:      "head",
		entity.BodyPartLeftHand:  "left hand",
		entity.BodyPartRightHand: "right hand",
	},
}

// Resolution is the answer of the vocabulary for one raw type on one body part.
type Resolution struct {
	Satisfies bool
	Canonical entity.EquipmentType
	Label     string
}

type Vocabulary struct {
	locale Locale
}

func NewVocabulary(locale Locale) Vocabulary {
	if _, ok := equipmentLabels[locale]; !ok {
		locale = LocaleES
	}
	return Vocabulary{locale: locale}
}

// RequiredEquipment returns a copy of the alias set for a body part, nil for body parts without a requirement.
func RequiredEquipment(bodyPart entity.BodyPart) []entity.EquipmentType {
	aliases, ok := requiredEquipment[bodyPart]
	if !ok {
		return nil
	}
	out := make([]entity.EquipmentType, len(aliases))
	copy(out, aliases)
	return out
}

// CanonicalType is the first alias of the body part's requirement.
func CanonicalType(bodyPart entity.BodyPart) (entity.EquipmentType, bool) {
	aliases, ok := requiredEquipment[bodyPart]
	if !ok || len(aliases) == 0 {
		return entity.EquipmentUnrecognized, false
	}
	return aliases[0], true
}

func Satisfies(bodyPart entity.BodyPart, equipment entity.EquipmentType) bool {
	if equipment == entity.EquipmentUnrecognized {
		return false
	}
	for _, alias := range requiredEquipment[bodyPart] {
		if alias == equipment {
			return true
		}
	}
	return false
}

// Resolve reports whether rawType satisfies bodyPart. The label is always the canonical one,
// whichever alias was detected.
func (v Vocabulary) Resolve(bodyPart entity.BodyPart, rawType string) Resolution {
	canonical, ok := CanonicalType(bodyPart)
	if !ok {
		return Resolution{Canonical: entity.EquipmentUnrecognized, Label: v.EquipmentLabel(entity.ParseEquipmentType(rawType), rawType)}
	}
	return Resolution{
		Satisfies: Satisfies(bodyPart, entity.ParseEquipmentType(rawType)),
		Canonical: canonical,
		Label:     v.EquipmentLabel(canonical, string(canonical)),
	}
}

// EquipmentLabel returns the localized name, falling back to the capitalized raw type.
func (v Vocabulary) EquipmentLabel(equipment entity.EquipmentType, rawType string) string {
	if label, ok := equipmentLabels[v.locale][equipment]; ok {
		return label
	}
	return capitalize(rawType)
}

func (v Vocabulary) BodyPartLabel(bodyPart entity.BodyPart) string {
	if label, ok := bodyPartLabels[v.locale][bodyPart]; ok {
		return label
	}
	return strings.ToLower(strings.ReplaceAll(string(bodyPart), "_", " "))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
