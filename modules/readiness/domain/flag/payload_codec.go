package flag

import (
	"encoding/json"
	"fmt"
)

// MarshalPayload encodes a payload variant for storage.
func MarshalPayload(p Payload) ([]byte, error) {
	if p == nil {
		return nil, ErrNoPayload
	}
	return json.Marshal(p)
}

// UnmarshalPayload decodes the stored payload of the given category.
func UnmarshalPayload(category Category, data []byte) (Payload, error) {
	if len(data) == 0 {
		data = []byte("{}")
	}
	switch category {
	case CategoryAdministrative:
		var p AdministrativePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case CategoryDuty:
		var p DutyPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case CategoryTasking:
		var p TaskingPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case CategoryProfile:
		var p ProfilePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case CategoryOther:
		var p OtherPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown flag category: %q", category)
	}
}
