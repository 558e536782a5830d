package users

import (
	"errors"
	"fmt"

	"github.com/odyssey-erp/odyssey-desk/internal/shared"
	"github.com/odyssey-erp/odyssey-desk/internal/store"
)

func translate(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: user", shared.ErrNotFound)
	}
	return err
}
