package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"

	"mystore/internal/policy"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// bindFiltered reads the JSON body, drops every key the caller may not write, and
// decodes the rest into dst. An empty body counts as an empty object.
func bindFiltered(c *gin.Context, allowed policy.FieldSet, dst interface{}) error {
	body, err := c.GetRawData()
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	filtered, err := policy.FilterInput(body, allowed)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(filtered, dst); err != nil {
		return fmt.Errorf("invalid request format: %w", err)
	}
	if binding.Validator == nil {
		return nil
	}
	return binding.Validator.ValidateStruct(dst)
}
