package main

import (
	"flag"
	"fmt"
	"sync"

	"DistributedFractals/coordinator"
	"DistributedFractals/misc"
	"DistributedFractals/progress"
	"DistributedFractals/render"
	"DistributedFractals/rpc"
	"DistributedFractals/task"
	"DistributedFractals/worker"
	"github.com/BrugadaSyndrome/bslogger"
)

var (
	backend, coordinatorAddress, settingsFile, transportName, workerSettingsFile string
	isCoordinator, isWorker                                                      bool
	workerCount                                                                  int

	logger = bslogger.NewLogger("Main", bslogger.Normal, nil)
)

func main() {
	parseArguments()

	var coordinatorServer *coordinator.Coordinator
	if isCoordinator {
		settings, err := coordinator.LoadSettings(settingsFile)
		misc.CheckError(err, logger, misc.Fatal)
		coordinatorServer, err = coordinator.NewCoordinator(settings)
		misc.CheckError(err, logger, misc.Fatal)
		logger.Info(fmt.Sprintf("Coordinator listening at %s", coordinatorServer.Address()))
		if coordinatorAddress == "" {
			coordinatorAddress = coordinatorServer.Address()
		}
	}

	if isWorker {
		startWorkers()
	}

	if coordinatorServer != nil {
		coordinatorServer.Wait()
		summarize(coordinatorServer.Results())
	}
}

func parseArguments() {
	// Coordinator values
	flag.BoolVar(&isCoordinator, "isCoordinator", false, "Is this instance the coordinator")
	flag.StringVar(&settingsFile, "settings", "coordinator.yaml", "Yaml file with the coordinator settings and jobs")

	// Worker values
	flag.BoolVar(&isWorker, "isWorker", false, "Is this instance a worker")
	flag.StringVar(&backend, "backend", "", "Escape-time backend for workers: auto or cpu")
	flag.StringVar(&coordinatorAddress, "coordinatorAddress", "", "Address of the coordinator")
	flag.StringVar(&transportName, "transport", "", "Rpc transport for workers: tcp or http")
	flag.IntVar(&workerCount, "workerCount", 1, "Number of workers to create")
	flag.StringVar(&workerSettingsFile, "workerSettings", "", "Yaml file with the worker settings")

	flag.Parse()

	if !isWorker && !isCoordinator {
		logger.Fatal("Please specify if this instance is the coordinator, a worker or both")
	}
	if workerCount < 1 {
		logger.Fatal(fmt.Sprintf("workerCount must be at least 1, got %d", workerCount))
	}
}

func workerSettings() worker.Settings {
	var settings worker.Settings
	if workerSettingsFile != "" {
		var err error
		settings, err = worker.LoadSettings(workerSettingsFile)
		misc.CheckError(err, logger, misc.Fatal)
	}

	// Flags override the settings file
	if backend != "" {
		settings.Backend = backend
	}
	if coordinatorAddress != "" {
		settings.CoordinatorAddress = coordinatorAddress
	}
	if transportName != "" {
		transport, err := rpc.ParseTransport(transportName)
		misc.CheckError(err, logger, misc.Fatal)
		settings.Transport = transport
	}
	misc.CheckError(settings.Verify(), logger, misc.Fatal)
	return settings
}

func startWorkers() {
	settings := workerSettings()
	capability := settings.Capability()
	logger.Info(fmt.Sprintf("Escape-time kernel: %s", capability))
	renderer := render.NewRenderer(capability)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		w, err := worker.NewWorker(settings, renderer)
		misc.CheckError(err, logger, misc.Fatal)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Wait()
		}()
	}

	// The coordinator in this process waits for its own workers
	if !isCoordinator {
		wg.Wait()
	}
}

func summarize(results []task.Task) {
	counts := make(map[progress.Status]int)
	for _, t := range results {
		counts[t.Status]++
		if t.Status == progress.Failed {
			logger.Error(fmt.Sprintf("%s failed: %s", t.Name, t.Error))
			continue
		}
		result, err := t.Result()
		if misc.CheckError(err, logger, misc.Error) {
			continue
		}
		switch {
		case result.Colors != nil:
			logger.Info(fmt.Sprintf("%s %s: %dx%d raster from %s backend", t.Name, t.Status, result.Colors.Width, result.Colors.Height, result.Backend))
		case result.Points != nil:
			logger.Info(fmt.Sprintf("%s %s: %d points", t.Name, t.Status, len(result.Points)))
		default:
			logger.Info(fmt.Sprintf("%s %s: %d rectangles", t.Name, t.Status, len(result.Rectangles)))
		}
	}
	logger.Info(fmt.Sprintf("Done [Completed: %d] [Canceled: %d] [Failed: %d]", counts[progress.Completed], counts[progress.Canceled], counts[progress.Failed]))
}
