package domain

import (
	"fmt"
	"strings"
)

type EntityType string

const (
	EntityDoorSchedule  EntityType = "door_schedule"
	EntityRoomSummary   EntityType = "room_summary"
	EntityEquipmentList EntityType = "equipment_list"
)

// ParseEntityType accepts the canonical names plus the room_schedule alias.
func ParseEntityType(raw string) (EntityType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(EntityDoorSchedule):
		return EntityDoorSchedule, nil
	case string(EntityRoomSummary), "room_schedule":
		return EntityRoomSummary, nil
	case string(EntityEquipmentList):
		return EntityEquipmentList, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse entity type", fmt.Errorf("unsupported extraction type %q", raw))
	}
}

// StructuredRecord is the closed set of validated extraction records.
type StructuredRecord interface {
	EntityType() EntityType
	Provenance() []string
	isStructuredRecord()
}

type DoorEntry struct {
	Mark           string   `json:"mark"`
	Location       string   `json:"location,omitempty"`
	WidthMM        float64  `json:"width_mm"`
	HeightMM       float64  `json:"height_mm"`
	FireRating     string   `json:"fire_rating,omitempty"`
	Material       string   `json:"material,omitempty"`
	SourceChunkIDs []string `json:"source_chunk_ids"`
}

func (DoorEntry) EntityType() EntityType { return EntityDoorSchedule }
func (e DoorEntry) Provenance() []string { return e.SourceChunkIDs }
func (DoorEntry) isStructuredRecord()    {}

type RoomEntry struct {
	Name           string   `json:"name"`
	AreaSqm        float64  `json:"area_sqm"`
	FloorFinish    string   `json:"floor_finish,omitempty"`
	CeilingHeightM *float64 `json:"ceiling_height_m,omitempty"`
	OccupancyType  string   `json:"occupancy_type,omitempty"`
	SourceChunkIDs []string `json:"source_chunk_ids"`
}

func (RoomEntry) EntityType() EntityType { return EntityRoomSummary }
func (e RoomEntry) Provenance() []string { return e.SourceChunkIDs }
func (RoomEntry) isStructuredRecord()    {}

type EquipmentEntry struct {
	Type           string   `json:"type"`
	Description    string   `json:"description"`
	Model          string   `json:"model,omitempty"`
	Location       string   `json:"location,omitempty"`
	Specifications string   `json:"specifications,omitempty"`
	SourceChunkIDs []string `json:"source_chunk_ids"`
}

func (EquipmentEntry) EntityType() EntityType { return EntityEquipmentList }
func (e EquipmentEntry) Provenance() []string { return e.SourceChunkIDs }
func (EquipmentEntry) isStructuredRecord()    {}

type ExtractionResult struct {
	EntityType EntityType         `json:"entity_type"`
	Records    []StructuredRecord `json:"data"`
	Sources    []SourceRef        `json:"sources"`
	Dropped    int                `json:"dropped"`
}
