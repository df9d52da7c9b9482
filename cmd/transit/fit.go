// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gorse-io/transit/base/log"
	"github.com/gorse-io/transit/master"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fitCommand = &cobra.Command{
	Use:   "fit",
	Short: "Train the model once and print its score.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := setup(cmd)
		if ratio, _ := cmd.Flags().GetFloat64("validate-ratio"); ratio > 0 {
			conf.Recommend.ValidateRatio = ratio
			if err := conf.Validate(); err != nil {
				log.Logger().Fatal("invalid validate ratio", zap.Error(err))
			}
		}
		if dumpPath, _ := cmd.Flags().GetString("dump-path"); dumpPath != "" {
			conf.Loader.DumpPath = dumpPath
		}
		dataStore, err := openDataStore(conf)
		if err != nil {
			log.Logger().Fatal("failed to open data store", zap.Error(err))
		}
		defer dataStore.Close()
		m, err := master.NewMaster(conf, dataStore, nil)
		if err != nil {
			log.Logger().Fatal("failed to create master", zap.Error(err))
		}
		if err = m.Load(context.Background()); err != nil {
			log.Logger().Fatal("failed to fit model", zap.Error(err))
		}

		status := m.Status()
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Mode", "Version", "Items", "Users", "Ratings", "Trained", "RMSE", "MAE", "Fit time")
		_ = table.Append([]string{
			status.Mode,
			status.Version,
			fmt.Sprint(status.NumItems),
			fmt.Sprint(status.NumUsers),
			fmt.Sprint(status.NumRatings),
			fmt.Sprint(status.Trained),
			fmt.Sprintf("%.4f", status.RMSE),
			fmt.Sprintf("%.4f", status.MAE),
			status.LastFitTime.Format(time.RFC3339),
		})
		_ = table.Render()
	},
}

func init() {
	fitCommand.Flags().Float64("validate-ratio", 0, "hold out ratio of ratings for validation")
	fitCommand.Flags().String("dump-path", "", "directory to write the trained model")
}
