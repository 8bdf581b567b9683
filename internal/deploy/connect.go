package deploy

import (
	"fmt"

	"github.com/condensereality/UnityGameHostingAction/internal/config"
	"github.com/condensereality/UnityGameHostingAction/internal/locate"
	"github.com/condensereality/UnityGameHostingAction/internal/ugs"
)

// Connect locates the ugs executable for p and returns a client bound to it.
func Connect(p *config.Params, r ugs.CommandRunner) (*ugs.Client, error) {
	loc := &locate.Locator{Executable: p.Executable, Dir: p.CLIDirectory}
	exe, err := loc.Find()
	if err != nil {
		return nil, fmt.Errorf("locating ugs: %w", err)
	}
	client, err := ugs.NewClient(exe, r)
	if err != nil {
		return nil, err
	}
	client.Module = p.ServiceModule
	client.UploadArgs = p.UploadArgs
	return client, nil
}
