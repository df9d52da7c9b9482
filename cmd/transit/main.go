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
	"os/signal"
	"syscall"
	"time"

	"github.com/gorse-io/transit/base/log"
	"github.com/gorse-io/transit/cmd/version"
	"github.com/gorse-io/transit/config"
	"github.com/gorse-io/transit/master"
	"github.com/gorse-io/transit/server"
	"github.com/gorse-io/transit/storage"
	"github.com/gorse-io/transit/storage/cache"
	"github.com/gorse-io/transit/storage/data"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var rootCommand = &cobra.Command{
	Use:   "transit",
	Short: "Flight and train recommendation service.",
	Run: func(cmd *cobra.Command, args []string) {
		// Show version
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			fmt.Println(version.BuildInfo())
			return
		}
		conf := setup(cmd)
		dataStore, cacheStore, err := openStores(conf)
		if err != nil {
			log.Logger().Fatal("failed to open stores", zap.Error(err))
		}
		defer closeStores(dataStore, cacheStore)
		m, err := master.NewMaster(conf, dataStore, cacheStore)
		if err != nil {
			log.Logger().Fatal("failed to create master", zap.Error(err))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		// The first load must succeed before serving.
		if err = m.Load(ctx); err != nil {
			log.Logger().Fatal("failed to load model", zap.Error(err))
		}
		go m.RunReloadLoop(ctx)

		s := server.NewRestServer(conf, m)
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := s.Shutdown(shutdownCtx); err != nil {
				log.Logger().Error("failed to shutdown http server", zap.Error(err))
			}
		}()
		if err = s.StartHttpServer(); err != nil {
			log.Logger().Fatal("failed to start http server", zap.Error(err))
		}
		log.Logger().Info("stop transit successfully")
	},
}

// setup initializes the logger and loads the configuration.
func setup(cmd *cobra.Command) *config.Config {
	debug, _ := cmd.Flags().GetBool("debug")
	log.SetLogger(cmd.Flags(), debug)
	configPath, _ := cmd.Flags().GetString("config")
	log.Logger().Info("load config", zap.String("config", configPath))
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		log.Logger().Fatal("failed to load config", zap.Error(err))
	}
	if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
		conf.Server.Mode = mode
		if err = conf.Validate(); err != nil {
			log.Logger().Fatal("invalid mode", zap.String("mode", mode), zap.Error(err))
		}
	}
	// setup trace provider
	tp, err := conf.Tracing.NewTracerProvider()
	if err != nil {
		log.Logger().Fatal("failed to create trace provider", zap.Error(err))
	}
	otel.SetTracerProvider(tp)
	otel.SetErrorHandler(log.GetErrorHandler())
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return conf
}

func openDataStore(conf *config.Config) (data.Database, error) {
	dataStore, err := data.Open(conf.Database.DataStore, conf.Database.TablePrefix,
		storage.WithMode(conf.Server.Mode),
		storage.WithFetchLimit(conf.Database.FetchLimit),
		storage.WithMaxOpenConns(conf.Database.MaxOpenConns),
		storage.WithMaxIdleConns(conf.Database.MaxIdleConns),
		storage.WithConnMaxLifetime(conf.Database.ConnMaxLifetime))
	if err != nil {
		return nil, errors.Annotatef(err, "failed to open data store %s", log.RedactDBURL(conf.Database.DataStore))
	}
	log.Logger().Info("open data store", zap.String("url", log.RedactDBURL(conf.Database.DataStore)))
	return dataStore, nil
}

func openStores(conf *config.Config) (data.Database, cache.Database, error) {
	dataStore, err := openDataStore(conf)
	if err != nil {
		return nil, nil, err
	}
	cacheStore, err := cache.Open(conf.Database.CacheStore, conf.Database.TablePrefix)
	if err != nil {
		_ = dataStore.Close()
		return nil, nil, errors.Annotatef(err, "failed to open cache store %s", log.RedactDBURL(conf.Database.CacheStore))
	}
	if conf.Database.CacheStore != "" {
		log.Logger().Info("open cache store", zap.String("url", log.RedactDBURL(conf.Database.CacheStore)))
	}
	return dataStore, cacheStore, nil
}

func closeStores(dataStore data.Database, cacheStore cache.Database) {
	if err := dataStore.Close(); err != nil {
		log.Logger().Error("failed to close data store", zap.Error(err))
	}
	if err := cacheStore.Close(); err != nil && !errors.Is(err, cache.ErrNoDatabase) {
		log.Logger().Error("failed to close cache store", zap.Error(err))
	}
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.PersistentFlags().String("mode", "", "override the transport mode (air or rail)")
	rootCommand.Flags().BoolP("version", "v", false, "transit version")
	rootCommand.AddCommand(fitCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
