// ABOUTME: Favorite foods, favorite meals with their items, and user-added foods.
// ABOUTME: Labels and names are deduplicated by their normalized form.
package models

import "strings"

// FavoriteFood is a saved single food for quick logging.
type FavoriteFood struct {
	ID           int64   `json:"id" yaml:"id"`
	Label        string  `json:"label" yaml:"label"`
	Name         string  `json:"name" yaml:"name"`
	MealCategory string  `json:"mealCategory" yaml:"meal_category"`
	Quantity     float64 `json:"quantity" yaml:"quantity"`
	Nutrients    `yaml:",inline"`
}

// FavoriteMeal is a saved group of foods logged together.
type FavoriteMeal struct {
	ID           int64              `json:"id" yaml:"id"`
	Label        string             `json:"label" yaml:"label"`
	MealCategory string             `json:"mealCategory" yaml:"meal_category"`
	Items        []FavoriteMealItem `json:"items,omitempty" yaml:"items,omitempty"`
}

// FavoriteMealItem is one food inside a favorite meal.
type FavoriteMealItem struct {
	ID        int64   `json:"id" yaml:"id"`
	MealID    int64   `json:"mealId" yaml:"meal_id"`
	Position  int     `json:"position" yaml:"position"`
	Name      string  `json:"name" yaml:"name"`
	Quantity  float64 `json:"quantity" yaml:"quantity"`
	Nutrients `yaml:",inline"`
}

// UserAddedFood is a custom food definition created on the device.
type UserAddedFood struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	ServingSize string `json:"servingSize" yaml:"serving_size"`
	Nutrients   `yaml:",inline"`
}

// NormalizeLabel folds case and whitespace so "  Lunch " and "lunch" compare equal.
func NormalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ToFoodEntry turns a favorite food into a food entry at date.
func (f *FavoriteFood) ToFoodEntry(date int64) FoodEntry {
	return FoodEntry{
		Date:         date,
		Name:         f.Name,
		MealCategory: f.MealCategory,
		Quantity:     f.Quantity,
		Nutrients:    f.Nutrients,
	}
}

// ToFoodEntries turns every item of a favorite meal into food entries at date.
func (m *FavoriteMeal) ToFoodEntries(date int64) []FoodEntry {
	entries := make([]FoodEntry, 0, len(m.Items))
	for _, it := range m.Items {
		entries = append(entries, FoodEntry{
			Date:         date,
			Name:         it.Name,
			MealCategory: m.MealCategory,
			Quantity:     it.Quantity,
			Nutrients:    it.Nutrients,
		})
	}
	return entries
}

// ToFoodEntry logs servings of a user-added food in a meal category.
func (u *UserAddedFood) ToFoodEntry(date int64, mealCategory string, servings float64) FoodEntry {
	return FoodEntry{
		Date:         date,
		Name:         u.Name,
		MealCategory: mealCategory,
		Quantity:     servings,
		Nutrients:    u.Nutrients.Scale(servings),
	}
}
