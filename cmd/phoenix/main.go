// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Binary phoenix boots the hosted kernel with a demo userland.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"phoenix.dev/phoenix/pkg/boot"
	"phoenix.dev/phoenix/pkg/platform/sim"
)

const version = "0.1.0"

// Run implements subcommands.Command for the run command.
type Run struct {
	configPath string
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string { return "run" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string { return "boot the kernel with the demo userland" }

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string { return "run [-config <path>]\n" }

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.configPath, "config", "", "path to a TOML boot configuration")
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	cfg, err := boot.LoadConfig(r.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	plat := sim.New()
	registerDemoUserland(plat)

	if err := boot.Boot(cfg, plat); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := boot.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// registerDemoUserland bundles a small init that exercises fork, exec, and
// wait so a bare `phoenix run` shows the kernel doing work.
func registerDemoUserland(plat *sim.Platform) {
	plat.Register("hello", func(u *sim.Proc) {
		u.WriteString("hello from the new image\n")
		u.Exit(0)
	})
	plat.Register("init", func(u *sim.Proc) {
		child := u.Fork(func(u *sim.Proc) {
			if err := u.Exec("hello", []string{"hello"}, nil); err != nil {
				u.Exit(127)
			}
		})
		u.Wait4(child)
		u.WriteString("init: child reaped\n")
		// Init never exits; it idles adopting orphans.
		for {
			u.Sleep(time.Hour)
		}
	})
}

// Version implements subcommands.Command for the version command.
type Version struct{}

// Name implements subcommands.Command.Name.
func (*Version) Name() string { return "version" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Version) Synopsis() string { return "print the version" }

// Usage implements subcommands.Command.Usage.
func (*Version) Usage() string { return "version\n" }

// SetFlags implements subcommands.Command.SetFlags.
func (*Version) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Version) Execute(context.Context, *flag.FlagSet, ...any) subcommands.ExitStatus {
	fmt.Println("phoenix version", version)
	return subcommands.ExitSuccess
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(new(Run), "")
	subcommands.Register(new(Version), "")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
