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

	"github.com/spf13/cobra"
)

// syncCommands defines the "sync" command: a one-shot sync pass that prints
// each provider's outcome.
func syncCommands(b *tallyInstance) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "run a one-shot provider sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if source != "" {
				result, err := b.tally.SyncProvider(ctx, source)
				if err != nil {
					return err
				}
				printResult(source, result.Success, result.Count, result.Error)
				return nil
			}

			for src, result := range b.tally.Synchronize(ctx) {
				printResult(src, result.Success, result.Count, result.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "sync a single provider")
	return cmd
}

func printResult(source string, success bool, count int, errMsg string) {
	if success {
		fmt.Printf("%-16s ok    %d transactions\n", source, count)
		return
	}
	fmt.Printf("%-16s fail  %s\n", source, errMsg)
}
