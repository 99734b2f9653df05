// ABOUTME: Store operations for favorite foods, favorite meals and user-added foods.
// ABOUTME: Normalized-label duplicate checks run inside the writer transaction.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harperreed/healthlink/internal/models"
)

var favoriteFoodsTable = table[models.FavoriteFood]{
	name:        FavoriteFoods,
	columns:     append([]string{"label", "label_norm", "name", "meal_category", "quantity"}, models.NutrientColumns()...),
	categoryCol: "meal_category",
	orderBy:     "label_norm ASC, id ASC",
	values: func(f *models.FavoriteFood) []any {
		return append([]any{f.Label, models.NormalizeLabel(f.Label), f.Name, f.MealCategory, f.Quantity},
			nutrientValues(&f.Nutrients)...)
	},
	dest: func(f *models.FavoriteFood) []any {
		var norm string
		return append([]any{&f.ID, &f.Label, &norm, &f.Name, &f.MealCategory, &f.Quantity},
			nutrientDest(&f.Nutrients)...)
	},
	id:       func(f *models.FavoriteFood) *int64 { return &f.ID },
	validate: func(f *models.FavoriteFood) error { return requireLabel(f.Label, "favorite food") },
}

var favoriteMealsTable = table[models.FavoriteMeal]{
	name:        FavoriteMeals,
	columns:     []string{"label", "label_norm", "meal_category"},
	categoryCol: "meal_category",
	orderBy:     "label_norm ASC, id ASC",
	values: func(m *models.FavoriteMeal) []any {
		return []any{m.Label, models.NormalizeLabel(m.Label), m.MealCategory}
	},
	dest: func(m *models.FavoriteMeal) []any {
		var norm string
		return []any{&m.ID, &m.Label, &norm, &m.MealCategory}
	},
	id:       func(m *models.FavoriteMeal) *int64 { return &m.ID },
	validate: func(m *models.FavoriteMeal) error { return requireLabel(m.Label, "favorite meal") },
}

var favoriteMealItemsTable = table[models.FavoriteMealItem]{
	name:    FavoriteMealItems,
	columns: append([]string{"meal_id", "position", "name", "quantity"}, models.NutrientColumns()...),
	orderBy: "position ASC, id ASC",
	values: func(it *models.FavoriteMealItem) []any {
		return append([]any{it.MealID, it.Position, it.Name, it.Quantity}, nutrientValues(&it.Nutrients)...)
	},
	dest: func(it *models.FavoriteMealItem) []any {
		return append([]any{&it.ID, &it.MealID, &it.Position, &it.Name, &it.Quantity}, nutrientDest(&it.Nutrients)...)
	},
	id: func(it *models.FavoriteMealItem) *int64 { return &it.ID },
	validate: func(it *models.FavoriteMealItem) error {
		if it.MealID == 0 {
			return fmt.Errorf("favorite meal item needs a meal id")
		}
		return nil
	},
}

var userAddedFoodsTable = table[models.UserAddedFood]{
	name:    UserAddedFoods,
	columns: append([]string{"name", "name_norm", "serving_size"}, models.NutrientColumns()...),
	orderBy: "name_norm ASC, id ASC",
	values: func(u *models.UserAddedFood) []any {
		return append([]any{u.Name, models.NormalizeLabel(u.Name), u.ServingSize}, nutrientValues(&u.Nutrients)...)
	},
	dest: func(u *models.UserAddedFood) []any {
		var norm string
		return append([]any{&u.ID, &u.Name, &norm, &u.ServingSize}, nutrientDest(&u.Nutrients)...)
	},
	id:       func(u *models.UserAddedFood) *int64 { return &u.ID },
	validate: func(u *models.UserAddedFood) error { return requireLabel(u.Name, "user-added food") },
}

func requireLabel(label, what string) error {
	if models.NormalizeLabel(label) == "" {
		return fmt.Errorf("%s label is required", what)
	}
	return nil
}

func existsByNorm(ctx context.Context, tx *sql.Tx, tableName Collection, col, value string) (bool, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", tableName, col)
	if err := tx.QueryRowContext(ctx, query, models.NormalizeLabel(value)).Scan(&n); err != nil {
		return false, fmt.Errorf("check %s: %w", tableName, err)
	}
	return n > 0, nil
}

// InsertFavoriteFood stores f unless a favorite with the same normalized
// label exists. It reports whether a row was written.
func (s *Store) InsertFavoriteFood(ctx context.Context, f *models.FavoriteFood) (bool, error) {
	inserted := false
	err := s.write(ctx, func(tx *sql.Tx) error {
		exists, err := existsByNorm(ctx, tx, FavoriteFoods, "label_norm", f.Label)
		if err != nil || exists {
			return err
		}
		f.ID = 0
		if err := favoriteFoodsTable.save(ctx, tx, f); err != nil {
			return err
		}
		inserted = true
		return nil
	}, FavoriteFoods)
	return inserted, err
}

// SaveFavoriteFood inserts or replaces f without a duplicate check.
func (s *Store) SaveFavoriteFood(ctx context.Context, f *models.FavoriteFood) error {
	return s.write(ctx, func(tx *sql.Tx) error { return favoriteFoodsTable.save(ctx, tx, f) }, FavoriteFoods)
}

// DeleteFavoriteFood removes one favorite food.
func (s *Store) DeleteFavoriteFood(ctx context.Context, id int64) error {
	return s.write(ctx, func(tx *sql.Tx) error { return favoriteFoodsTable.deleteByID(ctx, tx, id) }, FavoriteFoods)
}

// ListFavoriteFoods returns favorite foods ordered by label.
func (s *Store) ListFavoriteFoods(ctx context.Context) ([]models.FavoriteFood, error) {
	return favoriteFoodsTable.list(ctx, s.db, Filter{})
}

// FindFavoriteFood looks a favorite food up by normalized label.
func (s *Store) FindFavoriteFood(ctx context.Context, label string) (*models.FavoriteFood, error) {
	recs, err := favoriteFoodsTable.query(ctx, s.db,
		favoriteFoodsTable.selectSQL()+" WHERE label_norm = ? ORDER BY id LIMIT 1", models.NormalizeLabel(label))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: favorite food %q", ErrNotFound, label)
	}
	return &recs[0], nil
}

// InsertFavoriteMeal stores meal and its items unless a meal with the same
// normalized label exists. The meal row is written first; its generated id
// is stamped onto every item before they are inserted, all in one transaction.
func (s *Store) InsertFavoriteMeal(ctx context.Context, meal *models.FavoriteMeal, items []models.FavoriteMealItem) (bool, error) {
	inserted := false
	err := s.write(ctx, func(tx *sql.Tx) error {
		exists, err := existsByNorm(ctx, tx, FavoriteMeals, "label_norm", meal.Label)
		if err != nil || exists {
			return err
		}
		meal.ID = 0
		if err := favoriteMealsTable.save(ctx, tx, meal); err != nil {
			return err
		}
		for i := range items {
			items[i].ID = 0
			items[i].MealID = meal.ID
			if items[i].Position == 0 {
				items[i].Position = i + 1
			}
			if err := favoriteMealItemsTable.save(ctx, tx, &items[i]); err != nil {
				return err
			}
		}
		meal.Items = items
		inserted = true
		return nil
	}, FavoriteMeals, FavoriteMealItems)
	return inserted, err
}

// SaveFavoriteMeal inserts or replaces meal and its items without a
// duplicate check. Used by import.
func (s *Store) SaveFavoriteMeal(ctx context.Context, meal *models.FavoriteMeal) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		if err := favoriteMealsTable.save(ctx, tx, meal); err != nil {
			return err
		}
		for i := range meal.Items {
			meal.Items[i].MealID = meal.ID
			if err := favoriteMealItemsTable.save(ctx, tx, &meal.Items[i]); err != nil {
				return err
			}
		}
		return nil
	}, FavoriteMeals, FavoriteMealItems)
}

// DeleteFavoriteMeal removes a meal; its items go with it through the
// ON DELETE CASCADE foreign key.
func (s *Store) DeleteFavoriteMeal(ctx context.Context, id int64) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		return favoriteMealsTable.deleteByID(ctx, tx, id)
	}, FavoriteMeals, FavoriteMealItems)
}

// GetFavoriteMeal returns a meal with its items.
func (s *Store) GetFavoriteMeal(ctx context.Context, id int64) (*models.FavoriteMeal, error) {
	meal, err := favoriteMealsTable.get(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if meal.Items, err = s.FavoriteMealItems(ctx, id); err != nil {
		return nil, err
	}
	return meal, nil
}

// FindFavoriteMeal looks a meal up by normalized label, with its items.
func (s *Store) FindFavoriteMeal(ctx context.Context, label string) (*models.FavoriteMeal, error) {
	recs, err := favoriteMealsTable.query(ctx, s.db,
		favoriteMealsTable.selectSQL()+" WHERE label_norm = ? ORDER BY id LIMIT 1", models.NormalizeLabel(label))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: favorite meal %q", ErrNotFound, label)
	}
	meal := &recs[0]
	if meal.Items, err = s.FavoriteMealItems(ctx, meal.ID); err != nil {
		return nil, err
	}
	return meal, nil
}

// ListFavoriteMeals returns every meal with its items, ordered by label.
func (s *Store) ListFavoriteMeals(ctx context.Context) ([]models.FavoriteMeal, error) {
	meals, err := favoriteMealsTable.list(ctx, s.db, Filter{})
	if err != nil {
		return nil, err
	}
	for i := range meals {
		if meals[i].Items, err = s.FavoriteMealItems(ctx, meals[i].ID); err != nil {
			return nil, err
		}
	}
	return meals, nil
}

// FavoriteMealItems returns the items of one meal in position order.
func (s *Store) FavoriteMealItems(ctx context.Context, mealID int64) ([]models.FavoriteMealItem, error) {
	return favoriteMealItemsTable.query(ctx, s.db,
		favoriteMealItemsTable.selectSQL()+" WHERE meal_id = ? ORDER BY "+favoriteMealItemsTable.orderBy, mealID)
}

// InsertUserAddedFood stores u unless a custom food with the same normalized
// name exists. It reports whether a row was written.
func (s *Store) InsertUserAddedFood(ctx context.Context, u *models.UserAddedFood) (bool, error) {
	inserted := false
	err := s.write(ctx, func(tx *sql.Tx) error {
		exists, err := existsByNorm(ctx, tx, UserAddedFoods, "name_norm", u.Name)
		if err != nil || exists {
			return err
		}
		u.ID = 0
		if err := userAddedFoodsTable.save(ctx, tx, u); err != nil {
			return err
		}
		inserted = true
		return nil
	}, UserAddedFoods)
	return inserted, err
}

// SaveUserAddedFood inserts or replaces u without a duplicate check.
func (s *Store) SaveUserAddedFood(ctx context.Context, u *models.UserAddedFood) error {
	return s.write(ctx, func(tx *sql.Tx) error { return userAddedFoodsTable.save(ctx, tx, u) }, UserAddedFoods)
}

// DeleteUserAddedFood removes one custom food.
func (s *Store) DeleteUserAddedFood(ctx context.Context, id int64) error {
	return s.write(ctx, func(tx *sql.Tx) error { return userAddedFoodsTable.deleteByID(ctx, tx, id) }, UserAddedFoods)
}

// ListUserAddedFoods returns custom foods ordered by name.
func (s *Store) ListUserAddedFoods(ctx context.Context) ([]models.UserAddedFood, error) {
	return userAddedFoodsTable.list(ctx, s.db, Filter{})
}

// SearchUserAddedFoods returns custom foods whose normalized name contains query.
func (s *Store) SearchUserAddedFoods(ctx context.Context, query string, limit int) ([]models.UserAddedFood, error) {
	if limit <= 0 {
		limit = 20
	}
	return userAddedFoodsTable.query(ctx, s.db,
		userAddedFoodsTable.selectSQL()+" WHERE name_norm LIKE '%' || ? || '%' ORDER BY "+userAddedFoodsTable.orderBy+" LIMIT ?",
		models.NormalizeLabel(query), limit)
}

// FindUserAddedFood looks a custom food up by normalized name.
func (s *Store) FindUserAddedFood(ctx context.Context, name string) (*models.UserAddedFood, error) {
	recs, err := userAddedFoodsTable.query(ctx, s.db,
		userAddedFoodsTable.selectSQL()+" WHERE name_norm = ? ORDER BY id LIMIT 1", models.NormalizeLabel(name))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: user-added food %q", ErrNotFound, name)
	}
	return &recs[0], nil
}
