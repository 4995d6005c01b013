package scheduler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// idNamespace seeds every derived identifier so that equal inputs always map
// to equal slot, timetable and conflict ids.
var idNamespace = uuid.MustParse("6f1c2a7e-3d4b-5c8e-9a10-2b3c4d5e6f70")

func deriveID(parts ...string) string {
	return uuid.NewSHA1(idNamespace, []byte(strings.Join(parts, "|"))).String()
}

type fingerprintInput struct {
	State       models.TimetableState `json:"state"`
	Meta        models.TimetableMeta  `json:"meta"`
	SlotMinutes int                   `json:"slotMinutes"`
	Seed        *int64                `json:"seed,omitempty"`
	Weights     Weights               `json:"weights"`
}

// Fingerprint hashes everything that influences a generation run.
func Fingerprint(state models.TimetableState, meta models.TimetableMeta, slotMinutes int, seed *int64, w Weights) (string, error) {
	payload, err := json.Marshal(fingerprintInput{
		State:       state,
		Meta:        meta,
		SlotMinutes: slotMinutes,
		Seed:        seed,
		Weights:     w,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
