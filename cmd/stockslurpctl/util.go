package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stockslurp/stockslurp/internal/api"
)

func cliClient() *api.Client {
	c := api.NewClient(apiURL, apiToken)
	c.Client.Timeout = timeout
	return c
}

func outResult(v any, printer func(any)) {
	if outputJSON {
		b, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(b))
	} else {
		printer(v)
	}
}

func valOrDash(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func parseOptions(str string) (map[string]interface{}, error) {
	if str == "" {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(str), &m); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return m, nil
}
