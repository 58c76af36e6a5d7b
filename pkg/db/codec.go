package db

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
)

const (
	occupantKindMember = "member"
	occupantKindLegacy = "legacy"
)

// legacyNamespace seeds the deterministic IDs minted for legacy occupants
var legacyNamespace = uuid.MustParse("6f1c1f4e-2b9e-4d0f-9a3e-5c0d1b7a8e21")

// legacySuffix matches the " #3" counters older rosters appended to names
var legacySuffix = regexp.MustCompile(`\s*#\d+\s*$`)

// raceDocument is the JSON shape of a race's slots and waitlist.
// Race header fields live in their own columns.
type raceDocument struct {
	Slots    []slotDocument     `json:"slots"`
	Waitlist []waitlistDocument `json:"waitlist"`
}

type slotDocument struct {
	ID          string            `json:"id"`
	Group       string            `json:"group"`
	Name        string            `json:"name"`
	Capacity    uint              `json:"capacity"`
	GenderLimit string            `json:"genderLimit"`
	Occupants   []json.RawMessage `json:"occupants"`
}

// occupantDocument is the tagged variant stored for each occupant
type occupantDocument struct {
	Kind        string `json:"kind"`
	CandidateID string `json:"candidateId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Tier        uint   `json:"tier"`
	IsVIP       bool   `json:"isVip,omitempty"`
	IsNew       bool   `json:"isNew,omitempty"`
	RoleTag     string `json:"roleTag,omitempty"`
	JoinedAt    int64  `json:"joinedAt"`
	Raw         string `json:"raw,omitempty"`

	// Keys used by older stringified fragments
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type waitlistDocument struct {
	CandidateID string `json:"candidateId"`
	DisplayName string `json:"displayName,omitempty"`
	Tier        uint   `json:"tier"`
	IsVIP       bool   `json:"isVip,omitempty"`
	IsNew       bool   `json:"isNew,omitempty"`
	SlotID      string `json:"slotId"`
	RequestedAt int64  `json:"requestedAt"`
}

// DecodeReport lists what needed resolving while decoding a race document
type DecodeReport struct {
	// LegacyOccupants were stored as free text and carry synthetic IDs
	LegacyOccupants []allocator.Occupant
}

// EncodeRaceDocument serialises the slots and waitlist of a race.
// Timestamps are stored as Unix milliseconds.
func EncodeRaceDocument(race allocator.Race) ([]byte, error) {
	doc := raceDocument{
		Slots:    make([]slotDocument, 0, len(race.Slots)),
		Waitlist: make([]waitlistDocument, 0, len(race.Waitlist)),
	}

	for _, slot := range race.Slots {
		sd := slotDocument{
			ID:          slot.ID,
			Group:       slot.Group,
			Name:        slot.Name,
			Capacity:    slot.Capacity,
			GenderLimit: string(slot.GenderLimit),
			Occupants:   make([]json.RawMessage, 0, len(slot.Occupants)),
		}
		for _, o := range slot.Occupants {
			od := occupantDocument{
				Kind:        occupantKindMember,
				CandidateID: o.CandidateID,
				DisplayName: o.DisplayName,
				Tier:        o.Tier,
				IsVIP:       o.IsVIP,
				IsNew:       o.IsNew,
				RoleTag:     o.RoleTag,
				JoinedAt:    toMillis(o.JoinedAt),
			}
			if o.IsLegacyImport {
				od.Kind = occupantKindLegacy
				od.Raw = o.LegacySource
			}
			data, err := json.Marshal(od)
			if err != nil {
				return nil, fmt.Errorf("failed to encode occupant %s: %w", o.CandidateID, err)
			}
			sd.Occupants = append(sd.Occupants, data)
		}
		doc.Slots = append(doc.Slots, sd)
	}

	for _, e := range race.Waitlist {
		doc.Waitlist = append(doc.Waitlist, waitlistDocument{
			CandidateID: e.CandidateID,
			DisplayName: e.DisplayName,
			Tier:        e.Tier,
			IsVIP:       e.IsVIP,
			IsNew:       e.IsNew,
			SlotID:      e.SlotID,
			RequestedAt: toMillis(e.RequestedAt),
		})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode race %s: %w", race.ID, err)
	}
	return data, nil
}

// DecodeRaceDocument fills race.Slots and race.Waitlist from a stored document.
// Occupants stored as plain strings or as JSON-stringified fragments are
// resolved here, once, into tagged occupants; race.ID must already be set.
func DecodeRaceDocument(race *allocator.Race, data []byte) (DecodeReport, error) {
	var report DecodeReport
	var doc raceDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return report, fmt.Errorf("failed to decode race %s: %w", race.ID, err)
	}

	race.Slots = make([]allocator.Slot, 0, len(doc.Slots))
	for _, sd := range doc.Slots {
		gender := allocator.Gender(sd.GenderLimit)
		if gender == "" {
			gender = allocator.GenderAny
		}
		slot := allocator.Slot{
			ID:          sd.ID,
			Group:       sd.Group,
			Name:        sd.Name,
			Capacity:    sd.Capacity,
			GenderLimit: gender,
		}
		for i, raw := range sd.Occupants {
			occupant, err := decodeOccupant(race.ID, sd.ID, i, raw)
			if err != nil {
				return report, fmt.Errorf("failed to decode occupant %d of slot %s: %w", i, sd.ID, err)
			}
			if occupant.IsLegacyImport {
				report.LegacyOccupants = append(report.LegacyOccupants, occupant)
			}
			slot.Occupants = append(slot.Occupants, occupant)
		}
		race.Slots = append(race.Slots, slot)
	}

	race.Waitlist = nil
	for _, wd := range doc.Waitlist {
		race.Waitlist = append(race.Waitlist, allocator.WaitlistEntry{
			CandidateID: wd.CandidateID,
			DisplayName: wd.DisplayName,
			Tier:        wd.Tier,
			IsVIP:       wd.IsVIP,
			IsNew:       wd.IsNew,
			SlotID:      wd.SlotID,
			RequestedAt: fromMillis(wd.RequestedAt),
		})
	}

	return report, nil
}

func decodeOccupant(raceID, slotID string, index int, raw json.RawMessage) (allocator.Occupant, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return allocator.Occupant{}, fmt.Errorf("empty occupant")
	}

	switch raw[0] {
	case '{':
		var od occupantDocument
		if err := json.Unmarshal(raw, &od); err != nil {
			return allocator.Occupant{}, err
		}
		return occupantFromDocument(raceID, slotID, index, od)

	case '"':
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return allocator.Occupant{}, err
		}
		text = strings.TrimSpace(text)
		if strings.HasPrefix(text, "{") {
			var od occupantDocument
			if err := json.Unmarshal([]byte(text), &od); err == nil {
				return occupantFromDocument(raceID, slotID, index, od)
			}
		}
		return legacyOccupant(raceID, slotID, index, text, ""), nil
	}

	return allocator.Occupant{}, fmt.Errorf("unsupported occupant encoding %q", raw)
}

func occupantFromDocument(raceID, slotID string, index int, od occupantDocument) (allocator.Occupant, error) {
	if od.CandidateID == "" {
		od.CandidateID = od.ID
	}
	if od.DisplayName == "" {
		od.DisplayName = od.Name
	}

	switch od.Kind {
	case occupantKindLegacy:
		occupant := legacyOccupant(raceID, slotID, index, od.Raw, od.CandidateID)
		if od.DisplayName != "" {
			occupant.DisplayName = od.DisplayName
		}
		occupant.RoleTag = od.RoleTag
		occupant.JoinedAt = fromMillis(od.JoinedAt)
		return occupant, nil

	case occupantKindMember, "":
		if od.CandidateID == "" {
			if od.DisplayName == "" {
				return allocator.Occupant{}, fmt.Errorf("occupant has neither id nor name")
			}
			return legacyOccupant(raceID, slotID, index, od.DisplayName, ""), nil
		}
		return allocator.Occupant{
			CandidateID: od.CandidateID,
			DisplayName: od.DisplayName,
			Tier:        od.Tier,
			IsVIP:       od.IsVIP,
			IsNew:       od.IsNew,
			RoleTag:     od.RoleTag,
			JoinedAt:    fromMillis(od.JoinedAt),
		}, nil
	}

	return allocator.Occupant{}, fmt.Errorf("unknown occupant kind %q", od.Kind)
}

// legacyOccupant builds an occupant from free text. Legacy occupants rank
// last and keep the original text for reconciliation.
func legacyOccupant(raceID, slotID string, index int, source, candidateID string) allocator.Occupant {
	if candidateID == "" {
		candidateID = LegacyCandidateID(raceID, slotID, index, source)
	}
	name := strings.TrimSpace(legacySuffix.ReplaceAllString(source, ""))
	if name == "" {
		name = source
	}
	return allocator.Occupant{
		CandidateID:    candidateID,
		DisplayName:    name,
		Tier:           allocator.TierUnclassified,
		IsLegacyImport: true,
		LegacySource:   source,
	}
}

// LegacyCandidateID returns the synthetic, deterministic ID for a legacy entry
func LegacyCandidateID(raceID, slotID string, index int, source string) string {
	key := raceID + "/" + slotID + "/" + strconv.Itoa(index) + "/" + source
	return "legacy-" + uuid.NewSHA1(legacyNamespace, []byte(key)).String()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
