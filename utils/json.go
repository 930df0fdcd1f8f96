package utils

import (
	"encoding/json"
)

// Marshal generic struct to indented JSON
func MarshalToJSON[T any](input T) (string, error) {
	jsonData, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

// Unmarshal JSON to generic struct
func UnmarshalFromJSON[T any](data []byte, output *T) error {
	return json.Unmarshal(data, output)
}
