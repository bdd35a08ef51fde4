package usecase

import (
	"os"
	"testing"

	"vmshift.io/vmshift/internal/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init("error", "json")
	os.Exit(m.Run())
}
