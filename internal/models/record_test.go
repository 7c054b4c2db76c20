package models

import "testing"

func TestLevelValid(t *testing.T) {
	for _, level := range []Level{LevelInfo, LevelSuccess, LevelWarn, LevelError} {
		if !level.Valid() {
			t.Fatalf("%s should be valid", level)
		}
	}
	for _, level := range []Level{"", "DEBUG", "info", "Success"} {
		if level.Valid() {
			t.Fatalf("%q should be invalid", level)
		}
	}
}
