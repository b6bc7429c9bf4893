package mode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vr-go/relay"
	"github.com/khaledhikmat/vr-go/service/backend"
	"github.com/khaledhikmat/vr-go/service/config"
)

func TestProbe(t *testing.T) {
	svcs := relay.ServicesFactory{
		CfgSvc:     config.NewEnv(),
		BackendSvc: backend.NewFake(nil, 0, nil),
	}

	assert.NoError(t, Probe(context.Background(), svcs))
}

func TestProbeFailure(t *testing.T) {
	svcs := relay.ServicesFactory{
		CfgSvc:     config.NewEnv(),
		BackendSvc: backend.NewFake(nil, 0, xerrors.New("connection refused")),
	}

	assert.Error(t, Probe(context.Background(), svcs))
}
