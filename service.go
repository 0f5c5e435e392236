package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kardianos/service"

	"roomify/core"
)

// serviceStopTimeout bounds how long Stop waits for run to return.
const serviceStopTimeout = 45 * time.Second

// Program adapts run to the service manager's Start/Stop lifecycle.
type Program struct {
	ctx    context.Context
	cancel context.CancelFunc
	exit   chan struct{}
	code   int
}

// Start must not block, so run is started in a goroutine.
func (p *Program) Start(s service.Service) error {
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.exit = make(chan struct{})
	go p.run()
	return nil
}

// Stop cancels run and waits for shutdown to finish.
func (p *Program) Stop(s service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()

	select {
	case <-p.exit:
	case <-time.After(serviceStopTimeout):
		return errors.New("timeout waiting for service to stop")
	}
	if p.code != core.ExitCodeSuccess {
		return fmt.Errorf("service exited with code %d (%s)", p.code, core.ExitCodeName(p.code))
	}
	return nil
}

func (p *Program) run() {
	defer close(p.exit)
	p.code = run(p.ctx, false)
}

// ServiceConfig describes the roomify service to the platform service
// manager (systemd, launchd or the Windows SCM).
func ServiceConfig() *service.Config {
	return &service.Config{
		Name:        "roomify",
		DisplayName: "Roomify Design Service",
		Description: "Generates interior and exterior redesigns of room photos",
		Option: service.KeyValue{
			"StartType": "automatic",
			"Restart":   "on-failure",
		},
	}
}

func newService(prg *Program) (service.Service, error) {
	s, err := service.New(prg, ServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return s, nil
}

// RunAsService runs under the service manager. It returns false when the
// process was started interactively.
func RunAsService() (bool, error) {
	if service.Interactive() {
		return false, nil
	}

	s, err := newService(&Program{})
	if err != nil {
		return false, err
	}
	if err := s.Run(); err != nil {
		return true, fmt.Errorf("service run failed: %w", err)
	}
	return true, nil
}

// controlService runs one of install, uninstall, start, stop or restart.
func controlService(action string) error {
	s, err := newService(&Program{})
	if err != nil {
		return err
	}
	if err := service.Control(s, action); err != nil {
		return fmt.Errorf("failed to %s service: %w", action, err)
	}
	return nil
}

// ServiceStatus reports the installed service's state.
func ServiceStatus() (service.Status, error) {
	s, err := newService(&Program{})
	if err != nil {
		return service.StatusUnknown, err
	}
	status, err := s.Status()
	if err != nil {
		return service.StatusUnknown, fmt.Errorf("failed to get service status: %w", err)
	}
	return status, nil
}

// PrintServiceUsage prints the command help.
func PrintServiceUsage() {
	fmt.Println("Roomify Service Management")
	fmt.Println()
	fmt.Println("Usage: roomify <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  install    Install roomify as a system service")
	fmt.Println("  uninstall  Remove the system service (alias: remove)")
	fmt.Println("  start      Start the system service")
	fmt.Println("  stop       Stop the system service")
	fmt.Println("  restart    Restart the system service")
	fmt.Println("  status     Show the current service status")
	fmt.Println("  version    Print the version and exit")
	fmt.Println("  help       Show this help message")
	fmt.Println()
	fmt.Println("Run without arguments to start the server in the foreground.")
}

// HandleServiceCommand handles service-related command-line arguments.
// Returns true if a service command was handled, false otherwise.
func HandleServiceCommand(args []string) bool {
	if len(args) < 2 {
		return false
	}

	var action string
	switch args[1] {
	case "install", "uninstall", "start", "stop", "restart":
		action = args[1]
	case "remove":
		action = "uninstall"
	case "status":
		status, err := ServiceStatus()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(core.ExitCodeError)
		}
		fmt.Println(statusText(status))
		return true
	case "help", "-h", "--help", "-help":
		PrintServiceUsage()
		return true
	default:
		return false
	}

	if err := controlService(action); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(core.ExitCodeError)
	}
	fmt.Printf("Service %s completed successfully\n", action)
	return true
}

func statusText(status service.Status) string {
	switch status {
	case service.StatusRunning:
		return "Service is running"
	case service.StatusStopped:
		return "Service is stopped"
	default:
		return "Service status unknown"
	}
}
