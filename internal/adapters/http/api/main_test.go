package api_test

import (
	"os"
	"testing"

	"github.com/rparrett/jornet/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}
