package worker

import (
	"fmt"
	"time"

	"DistributedFractals/kernel"
	"DistributedFractals/misc"
	"DistributedFractals/rpc"
	"github.com/BrugadaSyndrome/bslogger"
	"gopkg.in/yaml.v3"
)

const (
	BackendAuto = "auto"
	BackendCPU  = "cpu"
)

type Settings struct {
	logger bslogger.Logger

	Backend            string        `yaml:"backend"`
	CoordinatorAddress string        `yaml:"coordinator_address"`
	HeartbeatInterval  time.Duration `yaml:"heartbeat_interval"`
	ListenAddress      string        `yaml:"listen_address"`
	RollCallInterval   time.Duration `yaml:"roll_call_interval"`
	Transport          rpc.Transport `yaml:"transport"`
}

func LoadSettings(settingsFile string) (Settings, error) {
	fileBytes, err := misc.ReadFile(settingsFile)
	if err != nil {
		return Settings{}, err
	}
	return ParseSettings(fileBytes)
}

func ParseSettings(data []byte) (Settings, error) {
	s := Settings{
		logger: bslogger.NewLogger("WorkerSettings", bslogger.Normal, nil),
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse worker settings: %w", err)
	}
	if err := s.Verify(); err != nil {
		return Settings{}, fmt.Errorf("invalid worker settings: %w", err)
	}
	s.logger.Debug(s.String())
	return s, nil
}

func (s *Settings) String() string {
	output := "\nWorker settings\n"
	output += fmt.Sprintf("Coordinator Address: %s (%s)\n", s.CoordinatorAddress, s.Transport)
	output += fmt.Sprintf("Backend: %s\n", s.Backend)
	return output
}

func (s *Settings) Verify() error {
	switch s.Backend {
	case "":
		s.Backend = BackendAuto
	case BackendAuto, BackendCPU:
	default:
		return fmt.Errorf("unknown backend %q, want %s or %s", s.Backend, BackendAuto, BackendCPU)
	}
	if s.CoordinatorAddress == "" {
		s.CoordinatorAddress = fmt.Sprintf("%s:%s", misc.GetLocalAddress(), "51000")
	}
	if s.HeartbeatInterval <= 0 {
		s.HeartbeatInterval = 30 * time.Second
	}
	if s.ListenAddress == "" {
		s.ListenAddress = fmt.Sprintf("%s:%s", misc.GetLocalAddress(), "0")
	}
	if s.RollCallInterval <= 0 {
		s.RollCallInterval = time.Minute
	}
	return nil
}

// Capability probes the accelerated kernel unless the cpu backend is selected
func (s *Settings) Capability() kernel.Capability {
	if s.Backend == BackendCPU {
		return kernel.Capability{Reason: "cpu backend selected"}
	}
	return kernel.Probe()
}
