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

package tally

import (
	"errors"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tallyhq/tally/config"
	"github.com/tallyhq/tally/internal/redisdb"
)

// Task type names shared between the enqueuing side and the worker.
const (
	TaskSyncProviders = "sync:providers"
	TaskDailySummary  = "report:daily_summary"
)

// Queue wraps the task queue client. Scheduled work (the periodic sync and
// the nightly summary) is registered by the worker process; the queue here
// only enqueues one-off runs triggered through the API.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

func NewQueue(conf *config.Configuration) *Queue {
	queueOptions := RedisClientOpt(conf.Redis.Dns)
	return &Queue{
		Client:    asynq.NewClient(queueOptions),
		Inspector: asynq.NewInspector(queueOptions),
	}
}

// RedisClientOpt resolves a Redis connection string, URL or host:port, into
// asynq client options.
func RedisClientOpt(dns string) asynq.RedisClientOpt {
	opts, err := redisdb.ParseRedisURL(dns)
	if err != nil {
		return asynq.RedisClientOpt{Addr: dns}
	}
	return asynq.RedisClientOpt{
		Addr:      opts.Addr,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}
}

// EnqueueSync schedules an immediate one-off sync run. The fixed task id
// collapses concurrent manual triggers into one queued run.
func (q *Queue) EnqueueSync() error {
	task := asynq.NewTask(TaskSyncProviders, nil,
		asynq.TaskID("manual-sync"),
		asynq.Retention(time.Hour),
	)
	_, err := q.Client.Enqueue(task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}
