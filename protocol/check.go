/*
 * Copyright 2025 Olake By Datazip
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package protocol

import (
	"fmt"

	"github.com/datazip-inc/tap-ilevel/constants"
	"github.com/datazip-inc/tap-ilevel/destination"
	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "check command",
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		if viper.GetString(constants.ConfigPath) == "" && viper.GetString(constants.DestinationPath) == "" {
			return fmt.Errorf("no connector config or destination config provided")
		}

		// check for destination config
		if path := viper.GetString(constants.DestinationPath); path != "" {
			destinationConfig = &types.WriterConfig{}
			if err := unmarshalConfig(cmd.Context(), path, destinationConfig); err != nil {
				return err
			}
		}

		// check for source config
		if path := viper.GetString(constants.ConfigPath); path != "" {
			return unmarshalConfig(cmd.Context(), path, connector.GetConfigRef())
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		err := func() error {
			if viper.GetString(constants.DestinationPath) != "" {
				pool, err := destination.NewWriterPool(cmd.Context(), destinationConfig)
				if err != nil {
					return err
				}
				if err := pool.Close(cmd.Context()); err != nil {
					return err
				}
			}

			if viper.GetString(constants.ConfigPath) != "" {
				// one authenticated request is enough, against the first selected stream
				selected, err := registry.Ordered(streamNames()...)
				if err != nil {
					return err
				}
				if len(selected) == 0 {
					return fmt.Errorf("no streams to check")
				}
				return connector.Check(cmd.Context(), selected[0])
			}

			return nil
		}()

		message := types.Message{
			Type: types.ConnectionStatusMessage,
			ConnectionStatus: &types.StatusRow{
				Status: types.ConnectionSucceed,
			},
		}
		if err != nil {
			message.ConnectionStatus.Message = err.Error()
			message.ConnectionStatus.Status = types.ConnectionFailed
		}
		if printErr := printMessage(cmd.OutOrStdout(), message); printErr != nil {
			return printErr
		}
		return err
	},
}
