// ABOUTME: Favorite foods, favorite meals and user-added foods, plus quick-add logging.
// ABOUTME: Inserts report false instead of failing when the normalized label already exists.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/healthlink/internal/models"
	"github.com/harperreed/healthlink/internal/storage"
)

// InsertFavoriteFood stores f unless its normalized label is taken.
func (r *Repository) InsertFavoriteFood(ctx context.Context, f *models.FavoriteFood) (bool, error) {
	return r.store.InsertFavoriteFood(ctx, f)
}

// InsertFavoriteMeal stores the meal and its items in one transaction unless
// the normalized label is taken.
func (r *Repository) InsertFavoriteMeal(ctx context.Context, meal *models.FavoriteMeal, items []models.FavoriteMealItem) (bool, error) {
	return r.store.InsertFavoriteMeal(ctx, meal, items)
}

// InsertUserAddedFood stores u unless its normalized name is taken.
func (r *Repository) InsertUserAddedFood(ctx context.Context, u *models.UserAddedFood) (bool, error) {
	return r.store.InsertUserAddedFood(ctx, u)
}

// DeleteFavoriteFood removes one favorite food by id.
func (r *Repository) DeleteFavoriteFood(ctx context.Context, id int64) error {
	return r.store.DeleteFavoriteFood(ctx, id)
}

// DeleteFavoriteMeal removes the meal and, through the foreign key, its items.
func (r *Repository) DeleteFavoriteMeal(ctx context.Context, id int64) error {
	return r.store.DeleteFavoriteMeal(ctx, id)
}

// DeleteUserAddedFood removes one custom food by id.
func (r *Repository) DeleteUserAddedFood(ctx context.Context, id int64) error {
	return r.store.DeleteUserAddedFood(ctx, id)
}

// FavoriteFoods lists favorite foods by label.
func (r *Repository) FavoriteFoods(ctx context.Context) ([]models.FavoriteFood, error) {
	return r.store.ListFavoriteFoods(ctx)
}

// FavoriteMeals lists favorite meals without their items.
func (r *Repository) FavoriteMeals(ctx context.Context) ([]models.FavoriteMeal, error) {
	return r.store.ListFavoriteMeals(ctx)
}

// FavoriteMealItems returns the items of one favorite meal.
func (r *Repository) FavoriteMealItems(ctx context.Context, mealID int64) ([]models.FavoriteMealItem, error) {
	return r.store.FavoriteMealItems(ctx, mealID)
}

// UserAddedFoods lists custom foods by name.
func (r *Repository) UserAddedFoods(ctx context.Context) ([]models.UserAddedFood, error) {
	return r.store.ListUserAddedFoods(ctx)
}

// SearchUserAddedFoods matches custom foods by a case-insensitive name fragment.
func (r *Repository) SearchUserAddedFoods(ctx context.Context, query string) ([]models.UserAddedFood, error) {
	return r.store.SearchUserAddedFoods(ctx, query, 0)
}

// WatchFavoriteFoods streams favorite foods.
func (r *Repository) WatchFavoriteFoods(ctx context.Context) <-chan Update[[]models.FavoriteFood] {
	return watch(ctx, r.feed(), []storage.Collection{storage.FavoriteFoods}, r.FavoriteFoods)
}

// WatchFavoriteMeals streams favorite meals, including item changes.
func (r *Repository) WatchFavoriteMeals(ctx context.Context) <-chan Update[[]models.FavoriteMeal] {
	return watch(ctx, r.feed(), []storage.Collection{storage.FavoriteMeals, storage.FavoriteMealItems}, r.FavoriteMeals)
}

// WatchUserAddedFoods streams custom foods.
func (r *Repository) WatchUserAddedFoods(ctx context.Context) <-chan Update[[]models.UserAddedFood] {
	return watch(ctx, r.feed(), []storage.Collection{storage.UserAddedFoods}, r.UserAddedFoods)
}

// LogFavoriteFood records the favorite with the given label as a food entry at t.
func (r *Repository) LogFavoriteFood(ctx context.Context, label string, t time.Time) (*models.FoodEntry, error) {
	fav, err := r.store.FindFavoriteFood(ctx, label)
	if err != nil {
		return nil, err
	}
	entry := fav.ToFoodEntry(models.Millis(t))
	if err := r.store.SaveFood(ctx, &entry); err != nil {
		return nil, fmt.Errorf("log favorite food: %w", err)
	}
	return &entry, nil
}

// LogFavoriteMeal records every item of the meal with the given label at t,
// all in one transaction.
func (r *Repository) LogFavoriteMeal(ctx context.Context, label string, t time.Time) ([]models.FoodEntry, error) {
	meal, err := r.store.FindFavoriteMeal(ctx, label)
	if err != nil {
		return nil, err
	}
	entries := meal.ToFoodEntries(models.Millis(t))
	if len(entries) == 0 {
		return nil, fmt.Errorf("favorite meal %q has no items", meal.Label)
	}
	if err := r.store.SaveFoods(ctx, entries); err != nil {
		return nil, fmt.Errorf("log favorite meal: %w", err)
	}
	return entries, nil
}

// LogUserAddedFood records servings of a custom food in a meal category at t.
func (r *Repository) LogUserAddedFood(ctx context.Context, name, mealCategory string, servings float64, t time.Time) (*models.FoodEntry, error) {
	if servings <= 0 {
		return nil, fmt.Errorf("servings must be positive")
	}
	food, err := r.store.FindUserAddedFood(ctx, name)
	if err != nil {
		return nil, err
	}
	entry := food.ToFoodEntry(models.Millis(t), mealCategory, servings)
	if err := r.store.SaveFood(ctx, &entry); err != nil {
		return nil, fmt.Errorf("log user-added food: %w", err)
	}
	return &entry, nil
}
