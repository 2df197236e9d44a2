package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/kirillkom/project-brain/internal/core/domain"
)

var errFieldMissing = errors.New("required field missing")

// ValidateRecords coerces raw generator output into typed records. Records with
// a missing required field or an uncoercible numeric field are dropped and
// counted; the rest keep their input order.
func ValidateRecords(
	raw []map[string]any,
	entityType domain.EntityType,
	sourceChunkIDs []string,
) ([]domain.StructuredRecord, int, error) {
	var build func(fields map[string]any, provenance []string) (domain.StructuredRecord, error)
	switch entityType {
	case domain.EntityDoorSchedule:
		build = buildDoorEntry
	case domain.EntityRoomSummary:
		build = buildRoomEntry
	case domain.EntityEquipmentList:
		build = buildEquipmentEntry
	default:
		return nil, 0, domain.WrapError(domain.ErrInvalidInput, "validate records", fmt.Errorf("unsupported entity type %q", entityType))
	}

	records := make([]domain.StructuredRecord, 0, len(raw))
	dropped := 0
	for i, fields := range raw {
		provenance := make([]string, len(sourceChunkIDs))
		copy(provenance, sourceChunkIDs)

		rec, err := build(fields, provenance)
		if err != nil {
			dropped++
			slog.Debug("extraction_record_dropped", "entity_type", string(entityType), "index", i, "error", err.Error())
			continue
		}
		records = append(records, rec)
	}
	if dropped > 0 {
		slog.Warn("extraction_partial_loss", "entity_type", string(entityType), "dropped", dropped, "kept", len(records))
	}
	return records, dropped, nil
}

func buildDoorEntry(fields map[string]any, provenance []string) (domain.StructuredRecord, error) {
	mark, err := requiredString(fields, "mark")
	if err != nil {
		return nil, err
	}
	width, err := requiredNumber(fields, "width_mm")
	if err != nil {
		return nil, err
	}
	height, err := requiredNumber(fields, "height_mm")
	if err != nil {
		return nil, err
	}
	return domain.DoorEntry{
		Mark:           mark,
		Location:       optionalString(fields, "location"),
		WidthMM:        width,
		HeightMM:       height,
		FireRating:     optionalString(fields, "fire_rating"),
		Material:       optionalString(fields, "material"),
		SourceChunkIDs: provenance,
	}, nil
}

func buildRoomEntry(fields map[string]any, provenance []string) (domain.StructuredRecord, error) {
	name, err := requiredString(fields, "name")
	if err != nil {
		return nil, err
	}
	area, err := requiredNumber(fields, "area_sqm")
	if err != nil {
		return nil, err
	}
	ceiling, err := optionalNumber(fields, "ceiling_height_m")
	if err != nil {
		return nil, err
	}
	return domain.RoomEntry{
		Name:           name,
		AreaSqm:        area,
		FloorFinish:    optionalString(fields, "floor_finish"),
		CeilingHeightM: ceiling,
		OccupancyType:  optionalString(fields, "occupancy_type"),
		SourceChunkIDs: provenance,
	}, nil
}

func buildEquipmentEntry(fields map[string]any, provenance []string) (domain.StructuredRecord, error) {
	kind, err := requiredString(fields, "type")
	if err != nil {
		return nil, err
	}
	description, err := requiredString(fields, "description")
	if err != nil {
		return nil, err
	}
	return domain.EquipmentEntry{
		Type:           kind,
		Description:    description,
		Model:          optionalString(fields, "model"),
		Location:       optionalString(fields, "location"),
		Specifications: optionalString(fields, "specifications"),
		SourceChunkIDs: provenance,
	}, nil
}

func requiredString(fields map[string]any, key string) (string, error) {
	s, ok := stringValue(fields[key])
	if !ok || s == "" {
		return "", fmt.Errorf("%s: %w", key, errFieldMissing)
	}
	return s, nil
}

func optionalString(fields map[string]any, key string) string {
	s, _ := stringValue(fields[key])
	return s
}

func requiredNumber(fields map[string]any, key string) (float64, error) {
	v, present := fields[key]
	if !present || isBlank(v) {
		return 0, fmt.Errorf("%s: %w", key, errFieldMissing)
	}
	n, err := coerceNumber(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func optionalNumber(fields map[string]any, key string) (*float64, error) {
	v, present := fields[key]
	if !present || isBlank(v) {
		return nil, nil
	}
	n, err := coerceNumber(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &n, nil
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func stringValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// coerceNumber accepts JSON numbers and numeric strings with thousands separators.
func coerceNumber(v any) (float64, error) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", t.String())
		}
		n = f
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", t)
		}
		n = f
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return n, nil
}
