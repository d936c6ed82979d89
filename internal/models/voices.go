package models

import "sort"

// VoiceGender mirrors the SSML gender enum the synthesis provider expects.
type VoiceGender string

const (
	GenderFemale VoiceGender = "FEMALE"
	GenderMale   VoiceGender = "MALE"
)

// voiceCatalog maps every supported es-ES voice to its SSML gender.
// Job descriptors are validated against this table before any provider call.
var voiceCatalog = map[string]VoiceGender{
	"es-ES-Standard-A": GenderFemale,
	"es-ES-Standard-B": GenderMale,
	"es-ES-Standard-C": GenderFemale,
	"es-ES-Standard-D": GenderFemale,
	"es-ES-Standard-E": GenderFemale,
	"es-ES-Standard-F": GenderMale,
	"es-ES-Neural2-A":  GenderFemale,
	"es-ES-Neural2-B":  GenderMale,
	"es-ES-Neural2-C":  GenderFemale,
	"es-ES-Neural2-D":  GenderFemale,
	"es-ES-Neural2-E":  GenderFemale,
	"es-ES-Neural2-F":  GenderMale,
	"es-ES-Polyglot-1": GenderMale,
	"es-ES-Studio-C":   GenderFemale,
	"es-ES-Studio-F":   GenderMale,
	"es-ES-Wavenet-B":  GenderMale,
	"es-ES-Wavenet-C":  GenderFemale,
	"es-ES-Wavenet-D":  GenderFemale,
	"es-ES-Wavenet-E":  GenderMale,
	"es-ES-Wavenet-F":  GenderFemale,
}

// VoiceGenderFor looks up the SSML gender for a voice id.
func VoiceGenderFor(voiceID string) (VoiceGender, bool) {
	g, ok := voiceCatalog[voiceID]
	return g, ok
}

// VoiceIDs returns all supported voice ids in stable order.
func VoiceIDs() []string {
	ids := make([]string, 0, len(voiceCatalog))
	for id := range voiceCatalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
