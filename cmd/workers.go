/*
Copyright 2025 Tally Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/tallyhq/tally"
)

// processSync runs a full provider sync from the worker queue and logs the
// per-provider outcome.
func (b *tallyInstance) processSync(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("tally.workers").Start(ctx, "Process Sync From Queue")
	defer span.End()

	results := b.tally.Synchronize(ctx)
	for source, result := range results {
		if !result.Success {
			logrus.Errorf(" [!] Sync failed for %s: %s", source, result.Error)
			continue
		}
		log.Printf(" [*] Synced %s: %d transactions", source, result.Count)
	}
	return nil
}

// processDailySummary aggregates yesterday's activity. Midnight runs report
// on the day that just ended, not the day that just started.
func (b *tallyInstance) processDailySummary(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("tally.workers").Start(ctx, "Process Daily Summary From Queue")
	defer span.End()

	summary, err := b.tally.GenerateDailySummary(ctx, time.Now().AddDate(0, 0, -1))
	if err != nil {
		return err
	}
	log.Printf(" [*] Daily summary for %s: %.2f across %d transactions", summary.Date, summary.TotalSpent, summary.TransactionCount)
	return nil
}

// workerCommands defines the "workers" command: the asynq worker pool plus
// the periodic scheduler that feeds it.
func workerCommands(b *tallyInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start tally workers",
		Run: func(cmd *cobra.Command, args []string) {
			redisOpt := tally.RedisClientOpt(b.cnf.Redis.Dns)

			srv := asynq.NewServer(redisOpt, asynq.Config{
				Concurrency: 1,
				Queues:      map[string]int{"default": 1},
			})

			mux := asynq.NewServeMux()
			mux.HandleFunc(tally.TaskSyncProviders, b.processSync)
			mux.HandleFunc(tally.TaskDailySummary, b.processDailySummary)

			scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
				Location: time.Local,
			})
			syncInterval := fmt.Sprintf("@every %dm", b.cnf.Sync.IntervalMins)
			if _, err := scheduler.Register(syncInterval, asynq.NewTask(tally.TaskSyncProviders, nil)); err != nil {
				log.Fatalf("could not register sync schedule: %v", err)
			}
			if _, err := scheduler.Register("0 0 * * *", asynq.NewTask(tally.TaskDailySummary, nil)); err != nil {
				log.Fatalf("could not register daily summary schedule: %v", err)
			}

			go func() {
				if err := scheduler.Run(); err != nil {
					log.Fatalf("could not run scheduler: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
