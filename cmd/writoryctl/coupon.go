package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/digkill/writory/internal/models"
	"github.com/digkill/writory/internal/repository"
	"github.com/digkill/writory/internal/service"
)

func couponCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coupon",
		Short: "Manage discount coupons",
	}
	cmd.AddCommand(couponCreateCmd(), couponListCmd())
	return cmd
}

func couponCreateCmd() *cobra.Command {
	var (
		code      string
		kind      string
		value     int
		limit     int
		tiers     []string
		validDays int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a coupon",
		Example: `  writoryctl coupon create --code MONSOON20 --type fixed --value 20 --limit 100
  writoryctl coupon create --code HALF --type percentage --value 50 --tiers double,bulk --valid-days 14`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := service.CouponInput{
				Code:          code,
				DiscountType:  models.DiscountType(kind),
				DiscountValue: value,
			}
			if limit > 0 {
				in.UsageLimit = &limit
			}
			for _, t := range tiers {
				in.ApplicableTiers = append(in.ApplicableTiers, models.Tier(t))
			}
			if validDays > 0 {
				from := time.Now()
				until := from.AddDate(0, 0, validDays)
				in.ValidFrom, in.ValidUntil = &from, &until
			}

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			c, err := service.NewCouponService(repository.NewCouponRepository(e.db)).Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created coupon %s (id %d)\n", c.Code, c.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "coupon code, stored upper case")
	cmd.Flags().StringVar(&kind, "type", "percentage", "percentage or fixed")
	cmd.Flags().IntVar(&value, "value", 0, "percent off, or rupees off for fixed coupons")
	cmd.Flags().IntVar(&limit, "limit", 0, "total redemptions allowed (0 = unlimited)")
	cmd.Flags().StringSliceVar(&tiers, "tiers", nil, "tiers the coupon applies to (default all paid tiers)")
	cmd.Flags().IntVar(&validDays, "valid-days", 0, "expire the coupon after this many days")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func couponListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List coupons as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			coupons, err := service.NewCouponService(repository.NewCouponRepository(e.db)).List(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(coupons)
		},
	}
}
