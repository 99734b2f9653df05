// ABOUTME: CLI commands for favorite foods, favorite meals and custom foods.
// ABOUTME: Favorites are saved once and logged later by label in one step.
package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/healthlink/internal/models"
	"github.com/harperreed/healthlink/internal/repository"
	"github.com/spf13/cobra"
)

var (
	favMeal    string
	favQty     float64
	favMacros  models.Nutrients
	favItems   []string
	favLogMeal bool
	favLogAt   string

	customServing  string
	customMacros   models.Nutrients
	customServings float64
	customMeal     string
)

var favoriteCmd = &cobra.Command{
	Use:     "favorite",
	Aliases: []string{"fav"},
	Short:   "Manage favorite foods and meals",
	Long: `Save foods and meals you eat often and log them by label.

Labels are matched ignoring case and extra spaces, so "Lunch" and "  lunch "
are the same favorite and cannot be saved twice.

EXAMPLES:

  health favorite add "usual toast" Toast --meal breakfast --qty 2 --calories 160
  health favorite add-meal "lunch box" --meal lunch --item "Sandwich=400" --item "Apple=95"
  health favorite log "usual toast"
  health favorite log "lunch box" --meal-kind
  health favorite list
  health favorite delete meal 3`,
}

var favoriteAddCmd = &cobra.Command{
	Use:   "add <label> <food name>",
	Short: "Save a favorite food",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := &models.FavoriteFood{
			Label:        args[0],
			Name:         args[1],
			MealCategory: favMeal,
			Quantity:     favQty,
			Nutrients:    favMacros,
		}
		ok, err := repo.InsertFavoriteFood(cmd.Context(), f)
		if err != nil {
			return fmt.Errorf("failed to save favorite: %w", err)
		}
		if !ok {
			warn(cmd, "A favorite food labeled %q already exists", f.Label)
			return nil
		}
		success(cmd, "Saved favorite %q", f.Label)
		return nil
	},
}

var favoriteAddMealCmd = &cobra.Command{
	Use:   "add-meal <label>",
	Short: "Save a favorite meal from --item NAME=KCAL flags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(favItems) == 0 {
			return fmt.Errorf("a meal needs at least one --item")
		}
		items := make([]models.FavoriteMealItem, 0, len(favItems))
		for _, raw := range favItems {
			it, err := parseMealItem(raw)
			if err != nil {
				return err
			}
			items = append(items, it)
		}

		meal := &models.FavoriteMeal{Label: args[0], MealCategory: favMeal}
		ok, err := repo.InsertFavoriteMeal(cmd.Context(), meal, items)
		if err != nil {
			return fmt.Errorf("failed to save favorite meal: %w", err)
		}
		if !ok {
			warn(cmd, "A favorite meal labeled %q already exists", meal.Label)
			return nil
		}
		success(cmd, "Saved favorite meal %q with %d items", meal.Label, len(items))
		return nil
	},
}

// parseMealItem reads "name=kcal" or "name=kcal*qty".
func parseMealItem(raw string) (models.FavoriteMealItem, error) {
	name, rest, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return models.FavoriteMealItem{}, fmt.Errorf("invalid item %q (use NAME=KCAL or NAME=KCAL*QTY)", raw)
	}
	kcalStr, qtyStr, hasQty := strings.Cut(rest, "*")
	kcal, err := strconv.ParseFloat(strings.TrimSpace(kcalStr), 64)
	if err != nil {
		return models.FavoriteMealItem{}, fmt.Errorf("invalid calories in item %q", raw)
	}
	qty := 1.0
	if hasQty {
		if qty, err = strconv.ParseFloat(strings.TrimSpace(qtyStr), 64); err != nil {
			return models.FavoriteMealItem{}, fmt.Errorf("invalid quantity in item %q", raw)
		}
	}
	return models.FavoriteMealItem{
		Name:      strings.TrimSpace(name),
		Quantity:  qty,
		Nutrients: models.Nutrients{Calories: kcal},
	}, nil
}

var favoriteListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List favorite foods and meals",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		foods, err := repo.FavoriteFoods(ctx)
		if err != nil {
			return err
		}
		meals, err := repo.FavoriteMeals(ctx)
		if err != nil {
			return err
		}
		if len(foods) == 0 && len(meals) == 0 {
			fmt.Fprintln(out, "No favorites saved.")
			return nil
		}

		bold := color.New(color.Bold)
		if len(foods) > 0 {
			bold.Fprintln(out, "Foods")
			for _, f := range foods {
				fmt.Fprintf(out, "  %s %s %s x%g %.0f kcal\n",
					faint.Sprint(padRight(fmt.Sprintf("#%d", f.ID), 5)), padRight(f.Label, 20), f.Name, f.Quantity, f.Calories)
			}
		}
		if len(meals) > 0 {
			bold.Fprintln(out, "Meals")
			for _, m := range meals {
				items, err := repo.FavoriteMealItems(ctx, m.ID)
				if err != nil {
					return err
				}
				names := make([]string, len(items))
				for i, it := range items {
					names[i] = it.Name
				}
				fmt.Fprintf(out, "  %s %s %s\n",
					faint.Sprint(padRight(fmt.Sprintf("#%d", m.ID), 5)), padRight(m.Label, 20), strings.Join(names, ", "))
			}
		}
		return nil
	},
}

var favoriteLogCmd = &cobra.Command{
	Use:   "log <label>",
	Short: "Log a favorite food (or meal with --meal-kind)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := repository.ParseTime(favLogAt, time.Now())
		if err != nil {
			return err
		}
		if favLogMeal {
			entries, err := repo.LogFavoriteMeal(cmd.Context(), args[0], t)
			if err != nil {
				return fmt.Errorf("failed to log favorite meal: %w", err)
			}
			success(cmd, "Logged %d foods from %q", len(entries), args[0])
			return afterWrite(cmd)
		}
		entry, err := repo.LogFavoriteFood(cmd.Context(), args[0], t)
		if err != nil {
			return fmt.Errorf("failed to log favorite: %w", err)
		}
		success(cmd, "Logged %s", entry.Name)
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %.0f kcal\n", faint.Sprintf("#%d", entry.ID), entry.Calories)
		return afterWrite(cmd)
	},
}

var favoriteDeleteCmd = &cobra.Command{
	Use:   "delete <food|meal> <id>",
	Short: "Delete a favorite food or meal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(strings.TrimPrefix(args[1], "#"), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id: %s", args[1])
		}
		switch args[0] {
		case "food":
			err = repo.DeleteFavoriteFood(cmd.Context(), id)
		case "meal":
			err = repo.DeleteFavoriteMeal(cmd.Context(), id)
		default:
			return fmt.Errorf("unknown favorite kind: %s (use food or meal)", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to delete favorite %s: %w", args[0], err)
		}
		color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "✗ Deleted favorite %s #%d\n", args[0], id)
		return nil
	},
}

var customCmd = &cobra.Command{
	Use:   "custom",
	Short: "Manage custom foods",
	Long: `Define your own foods with per-serving nutrients and log them by name.

EXAMPLES:

  health custom add "Protein shake" --serving "1 scoop" --calories 120 --protein 24
  health custom list shake
  health custom log "protein shake" --servings 2 --meal snack`,
}

var customAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Define a custom food",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u := &models.UserAddedFood{Name: args[0], ServingSize: customServing, Nutrients: customMacros}
		ok, err := repo.InsertUserAddedFood(cmd.Context(), u)
		if err != nil {
			return fmt.Errorf("failed to save custom food: %w", err)
		}
		if !ok {
			warn(cmd, "A custom food named %q already exists", u.Name)
			return nil
		}
		success(cmd, "Saved custom food %q", u.Name)
		return nil
	},
}

var customListCmd = &cobra.Command{
	Use:     "list [query]",
	Aliases: []string{"ls"},
	Short:   "List or search custom foods",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			foods []models.UserAddedFood
			err   error
		)
		if len(args) == 1 {
			foods, err = repo.SearchUserAddedFoods(cmd.Context(), args[0])
		} else {
			foods, err = repo.UserAddedFoods(cmd.Context())
		}
		if err != nil {
			return fmt.Errorf("failed to list custom foods: %w", err)
		}
		if len(foods) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No custom foods found.")
			return nil
		}
		for _, f := range foods {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s %.0f kcal\n",
				faint.Sprint(padRight(fmt.Sprintf("#%d", f.ID), 5)), padRight(f.Name, 24), faint.Sprint(f.ServingSize), f.Calories)
		}
		return nil
	},
}

var customLogCmd = &cobra.Command{
	Use:   "log <name>",
	Short: "Log servings of a custom food",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := repository.ParseTime(favLogAt, time.Now())
		if err != nil {
			return err
		}
		entry, err := repo.LogUserAddedFood(cmd.Context(), args[0], customMeal, customServings, t)
		if err != nil {
			return fmt.Errorf("failed to log custom food: %w", err)
		}
		success(cmd, "Logged %s", entry.Name)
		fmt.Fprintf(cmd.OutOrStdout(), "  %s x%g %.0f kcal\n", faint.Sprintf("#%d", entry.ID), entry.Quantity, entry.Calories)
		return afterWrite(cmd)
	},
}

var customDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a custom food",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id: %s", args[0])
		}
		if err := repo.DeleteUserAddedFood(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to delete custom food: %w", err)
		}
		color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "✗ Deleted custom food #%d\n", id)
		return nil
	},
}

func init() {
	favoriteAddCmd.Flags().StringVarP(&favMeal, "meal", "m", "", "meal category")
	favoriteAddCmd.Flags().Float64VarP(&favQty, "qty", "q", 1, "servings")
	macroFlags(favoriteAddCmd, &favMacros)

	favoriteAddMealCmd.Flags().StringVarP(&favMeal, "meal", "m", "", "meal category")
	favoriteAddMealCmd.Flags().StringArrayVar(&favItems, "item", nil, "meal item as NAME=KCAL or NAME=KCAL*QTY (repeatable)")

	favoriteLogCmd.Flags().BoolVar(&favLogMeal, "meal-kind", false, "log a favorite meal instead of a food")
	favoriteLogCmd.Flags().StringVar(&favLogAt, "at", "", "timestamp (YYYY-MM-DD HH:MM)")

	customAddCmd.Flags().StringVar(&customServing, "serving", "", "serving size description")
	macroFlags(customAddCmd, &customMacros)

	customLogCmd.Flags().Float64VarP(&customServings, "servings", "s", 1, "number of servings")
	customLogCmd.Flags().StringVarP(&customMeal, "meal", "m", "", "meal category")
	customLogCmd.Flags().StringVar(&favLogAt, "at", "", "timestamp (YYYY-MM-DD HH:MM)")

	favoriteCmd.AddCommand(favoriteAddCmd, favoriteAddMealCmd, favoriteListCmd, favoriteLogCmd, favoriteDeleteCmd)
	customCmd.AddCommand(customAddCmd, customListCmd, customLogCmd, customDeleteCmd)
	rootCmd.AddCommand(favoriteCmd, customCmd)
}
