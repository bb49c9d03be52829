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

// Package boot brings the kernel up: platform wiring, hart wakeup, executor
// start, and the init process.
package boot

import (
	"fmt"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"

	"phoenix.dev/phoenix/pkg/executor"
	"phoenix.dev/phoenix/pkg/kernel"
	"phoenix.dev/phoenix/pkg/loader"
	"phoenix.dev/phoenix/pkg/platform/sim"
)

const banner = `
    ____  __                     _
   / __ \/ /_  ____  ___  ____  (_)  __
  / /_/ / __ \/ __ \/ _ \/ __ \/ / |/_/
 / ____/ / / / /_/ /  __/ / / / />  <
/_/   /_/ /_/\____/\___/_/ /_/_/_/|_|
`

// Boot wires the platform, wakes the secondary harts, starts the executor
// workers, and spawns the init process. It returns once init is scheduled;
// Wait blocks on the workers.
func Boot(cfg Config, plat *sim.Platform) error {
	fmt.Print(banner)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("bad log level %q: %w", cfg.LogLevel, err)
	}
	logrus.SetLevel(level)

	plat.Install()
	wakeSecondaryHarts(plat, cfg.Harts)
	executor.Start(cfg.Harts, kernel.SetLocalHart)

	if _, err := loader.AddInitProc(cfg.Init); err != nil {
		return fmt.Errorf("spawning init %q: %w", cfg.Init, err)
	}
	return nil
}

// Wait blocks until the executor workers exit.
func Wait() error {
	return executor.Wait()
}

// wakeSecondaryHarts asks the firmware to start every hart beyond the boot
// hart, retrying transiently unavailable ones.
func wakeSecondaryHarts(plat *sim.Platform, n int) {
	for id := 1; id < n; id++ {
		id := id
		policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
		start := func() error {
			return plat.HartStart(id)
		}
		if err := backoff.Retry(start, policy); err != nil {
			logrus.WithField("hart", id).WithError(err).Warn("hart failed to start")
			continue
		}
		logrus.WithField("hart", id).Info("hart started")
	}
}
