package models

import (
	"errors"
	"fmt"

	"github.com/TaffyWrinkle/TeamCloud/internal/config"
)

// validProperties is the shared rule for the free-form properties maps
// carried by projects, users, and provider references.
func validProperties(value any) error {
	properties, _ := value.(map[string]string)
	for key, val := range properties {
		if key == "" {
			return errors.New("property keys cannot be blank")
		}
		if len(key) > config.MaxPropertyKeyLength {
			return fmt.Errorf("property key %q exceeds %d characters", key, config.MaxPropertyKeyLength)
		}
		if len(val) > config.MaxPropertyValueLength {
			return fmt.Errorf("value of property %q exceeds %d characters", key, config.MaxPropertyValueLength)
		}
	}
	return nil
}
