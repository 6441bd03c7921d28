package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

// toConfigData converts an optional configuration into a nullable JSON column value
func toConfigData(config any) (sql.NullString, error) {
	var configData sql.NullString

	if config == nil {
		return configData, nil
	}

	switch c := config.(type) {
	case string:
		configData.String = c

	case []byte:
		configData.String = string(c)

	default:
		p, err := json.Marshal(config)
		if err != nil {
			return configData, fmt.Errorf("marshaling config: %w", err)
		}
		configData.String = string(p)
	}

	configData.Valid = true
	return configData, nil
}

func fromConfigData(config sql.NullString) *string {
	if !config.Valid {
		return nil
	}
	return &config.String
}
