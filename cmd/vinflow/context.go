package main

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"vinflow/internal/config"
	"vinflow/internal/daemonrun"
	"vinflow/internal/ipc"
	"vinflow/internal/roles"
)

type commandContext struct {
	socketFlag *string
	configFlag *string
	roleFlag   *string
	actorFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(socketFlag, configFlag, roleFlag, actorFlag *string) *commandContext {
	return &commandContext{
		socketFlag: socketFlag,
		configFlag: configFlag,
		roleFlag:   roleFlag,
		actorFlag:  actorFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) socketPath() string {
	if c.socketFlag != nil && strings.TrimSpace(*c.socketFlag) != "" {
		return *c.socketFlag
	}
	return daemonrun.SocketPath(c.configValue())
}

// actor resolves the operator identity for mutating commands. Role and
// name come from flags first, then VINFLOW_ROLE / VINFLOW_ACTOR, then
// the OS username with the manager role.
func (c *commandContext) actor() (ipc.Actor, error) {
	roleValue := ""
	if c.roleFlag != nil {
		roleValue = strings.TrimSpace(*c.roleFlag)
	}
	if roleValue == "" {
		roleValue = strings.TrimSpace(os.Getenv("VINFLOW_ROLE"))
	}
	if roleValue == "" {
		roleValue = string(roles.ReconManager)
	}
	role, ok := roles.Parse(roleValue)
	if !ok {
		return ipc.Actor{}, fmt.Errorf("unknown role %q", roleValue)
	}

	name := ""
	if c.actorFlag != nil {
		name = strings.TrimSpace(*c.actorFlag)
	}
	if name == "" {
		name = strings.TrimSpace(os.Getenv("VINFLOW_ACTOR"))
	}
	if name == "" {
		if u, err := user.Current(); err == nil {
			name = u.Username
		}
	}
	if name == "" {
		name = "unknown"
	}

	return ipc.Actor{ID: name, Name: name, Role: string(role)}, nil
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	client, err := c.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (c *commandContext) dialClient() (*ipc.Client, error) {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		return nil, wrapDialError(err, socket)
	}
	return client, nil
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `vinflow daemon start`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: socket %s refused the connection; verify the daemon is running", socket)
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
