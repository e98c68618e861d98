package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/upstac/upstac/internal/domain/testrequest"
)

type intakeFlags struct {
	name, gender, email, phone, address, pinCode string
	age                                          int
}

// intakeCmd creates an INITIATED request from the command line, standing in
// for the patient intake service.
func intakeCmd() *cobra.Command {
	var f intakeFlags

	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Create a new INITIATED test request",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx := cmd.Context()
			st, err := openStore(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer st.Close()

			svc, _ := newWorkflow(st, logger, nil)
			req, err := svc.Create(ctx, f.toIntake(cmd))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(req)
		},
	}

	cmd.Flags().StringVar(&f.name, "name", "", "Patient name (required)")
	cmd.Flags().IntVar(&f.age, "age", 0, "Patient age in years")
	cmd.Flags().StringVar(&f.gender, "gender", "", "Patient gender")
	cmd.Flags().StringVar(&f.email, "email", "", "Contact email")
	cmd.Flags().StringVar(&f.phone, "phone", "", "Contact phone number")
	cmd.Flags().StringVar(&f.address, "address", "", "Postal address")
	cmd.Flags().StringVar(&f.pinCode, "pin-code", "", "Postal pin code")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// toIntake leaves optional fields nil unless their flag was given.
func (f intakeFlags) toIntake(cmd *cobra.Command) testrequest.Intake {
	opt := func(flag, v string) *string {
		if !cmd.Flags().Changed(flag) {
			return nil
		}
		return &v
	}
	return testrequest.Intake{
		PatientName: f.name,
		Age:         f.age,
		Gender:      opt("gender", f.gender),
		Email:       opt("email", f.email),
		PhoneNumber: opt("phone", f.phone),
		Address:     opt("address", f.address),
		PinCode:     opt("pin-code", f.pinCode),
	}
}
