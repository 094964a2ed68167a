package domain

import "strings"

const (
	frontSuffix = "_front"
	backSuffix  = "_back"
)

// documentTypeRegistry is the closed set of classifier tags the wizard understands.
// Each entry carries its side and category structurally so no call site ever
// inspects the tag string again after classification.
var documentTypeRegistry = map[string]DocumentType{
	"aadhaar_front":         {Tag: "aadhaar_front", BaseType: "aadhaar", Side: SideFront, Category: CategoryIDCard},
	"aadhaar_back":          {Tag: "aadhaar_back", BaseType: "aadhaar", Side: SideBack, Category: CategoryIDCard},
	"pan_card":              {Tag: "pan_card", BaseType: "pan_card", Side: SideNone, Category: CategorySingleDocument},
	"voter_id_front":        {Tag: "voter_id_front", BaseType: "voter_id", Side: SideFront, Category: CategoryIDCard},
	"voter_id_back":         {Tag: "voter_id_back", BaseType: "voter_id", Side: SideBack, Category: CategoryIDCard},
	"driving_license_front": {Tag: "driving_license_front", BaseType: "driving_license", Side: SideFront, Category: CategoryIDCard},
	"driving_license_back":  {Tag: "driving_license_back", BaseType: "driving_license", Side: SideBack, Category: CategoryIDCard},
	"ration_card_front":     {Tag: "ration_card_front", BaseType: "ration_card", Side: SideFront, Category: CategoryIDCard},
	"ration_card_back":      {Tag: "ration_card_back", BaseType: "ration_card", Side: SideBack, Category: CategoryIDCard},
	"passport":              {Tag: "passport", BaseType: "passport", Side: SideNone, Category: CategorySingleDocument},
	"passport_photo":        {Tag: "passport_photo", BaseType: "passport_photo", Side: SideNone, Category: CategorySingleDocument},
	"generic":               {Tag: "generic", BaseType: "generic", Side: SideNone, Category: CategorySingleDocument},
}

// ResolveDocumentType maps a classifier wire tag to its structural type. Tags
// outside the registry that still carry a _front/_back suffix are treated as
// ID-card sides so new card types from the classifier keep pairing; anything
// else falls back to a generic single document.
func ResolveDocumentType(tag string) DocumentType {
	normalized := strings.ToLower(strings.TrimSpace(tag))
	if dt, ok := documentTypeRegistry[normalized]; ok {
		return dt
	}

	switch {
	case strings.HasSuffix(normalized, frontSuffix):
		return DocumentType{
			Tag:      normalized,
			BaseType: strings.TrimSuffix(normalized, frontSuffix),
			Side:     SideFront,
			Category: CategoryIDCard,
		}
	case strings.HasSuffix(normalized, backSuffix):
		return DocumentType{
			Tag:      normalized,
			BaseType: strings.TrimSuffix(normalized, backSuffix),
			Side:     SideBack,
			Category: CategoryIDCard,
		}
	}

	if normalized == "" {
		normalized = "generic"
	}
	return DocumentType{
		Tag:      normalized,
		BaseType: normalized,
		Side:     SideNone,
		Category: CategorySingleDocument,
	}
}

// KnownDocumentTags returns the registered classifier tags in no particular order.
func KnownDocumentTags() []string {
	tags := make([]string, 0, len(documentTypeRegistry))
	for tag := range documentTypeRegistry {
		tags = append(tags, tag)
	}
	return tags
}
