package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/txplore/txplore"
	"github.com/txplore/txplore/internal/domain"
	"github.com/txplore/txplore/internal/infra/database/models"
)

// PostRepository is the authoritative store for posts and their
// transactions. Writes to the same record are serialized by the
// database; reads and writes to different records proceed
// independently.
type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// ListPosts returns up to limit posts ordered by id descending,
// restricted to id < after when after > 0.
func (r *PostRepository) ListPosts(ctx context.Context, limit int, after int64) ([]txplore.Post, error) {

	query := r.db.WithContext(ctx).Model(&models.Post{})
	if after > 0 {
		query = query.Where("id < ?", after)
	}

	var rows []models.Post
	err := query.Order("id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list posts")
	}

	posts := make([]txplore.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, postFromModel(row))
	}
	return posts, nil
}

// CountPosts reports the total number of posts.
func (r *PostRepository) CountPosts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count posts")
	}
	return count, nil
}

// CountOlder reports how many posts exist below the given cursor. The
// pagination resolver uses it for hasNextPage instead of over-fetching.
func (r *PostRepository) CountOlder(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id < ?", id).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count older posts")
	}
	return count, nil
}

func (r *PostRepository) GetPost(ctx context.Context, id int64) (txplore.Post, error) {
	var row models.Post
	err := r.db.WithContext(ctx).Take(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return txplore.Post{}, domain.NotFoundError{Resource: "post", ID: id}
		}
		return txplore.Post{}, errors.Wrap(err, "failed to get post")
	}
	return postFromModel(row), nil
}

func (r *PostRepository) CreatePost(ctx context.Context, input txplore.NewPostInput) (int64, error) {
	row := models.Post{
		Title:   input.Title,
		Content: input.Content,
	}
	err := r.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to create post")
	}
	return row.ID, nil
}

func (r *PostRepository) UpdatePost(ctx context.Context, input txplore.EditPostInput) error {

	changes := map[string]any{}
	if input.Title != nil {
		changes["title"] = *input.Title
	}
	if input.Content != nil {
		changes["content"] = *input.Content
	}
	if len(changes) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", input.ID).
		Updates(changes).Error
	if err != nil {
		return errors.Wrap(err, "failed to update post")
	}
	return nil
}

// DeletePost removes a post together with all of its transactions. The
// two deletes share one transaction so an orphaned child can never be
// observed. Returns false when the post did not exist.
func (r *PostRepository) DeletePost(ctx context.Context, id int64) (bool, error) {

	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Transaction{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Post{}, id)
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to delete post")
	}
	return deleted, nil
}

// TransactionsForPosts loads the transactions of all requested posts in
// one query and groups them per post, preserving both the caller's post
// id order and insertion order within each group. Every requested id is
// present in the result, with an empty slice when it has none.
func (r *PostRepository) TransactionsForPosts(ctx context.Context, postIDs []int64) (map[int64][]txplore.Transaction, error) {

	result := make(map[int64][]txplore.Transaction, len(postIDs))
	for _, id := range postIDs {
		result[id] = []txplore.Transaction{}
	}

	if len(postIDs) == 0 {
		return result, nil
	}

	var rows []models.Transaction
	err := r.db.WithContext(ctx).
		Where("post_id IN ?", postIDs).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load transactions")
	}

	for _, row := range rows {
		result[row.PostID] = append(result[row.PostID], transactionFromModel(row))
	}
	return result, nil
}

func (r *PostRepository) GetTransaction(ctx context.Context, id int64) (txplore.Transaction, error) {
	var row models.Transaction
	err := r.db.WithContext(ctx).Take(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return txplore.Transaction{}, domain.NotFoundError{Resource: "transaction", ID: id}
		}
		return txplore.Transaction{}, errors.Wrap(err, "failed to get transaction")
	}
	return transactionFromModel(row), nil
}

func (r *PostRepository) CreateTransaction(ctx context.Context, input txplore.NewTransactionInput) (int64, error) {

	var parentCount int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", input.PostID).
		Count(&parentCount).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to check parent post")
	}
	if parentCount == 0 {
		return 0, domain.ConstraintError{Reason: "transaction references nonexistent post"}
	}

	row := models.Transaction{
		PostID:    input.PostID,
		Content:   input.Content,
		Balance:   input.Balance,
		TimeStamp: input.TimeStamp,
	}
	err = r.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to create transaction")
	}
	return row.ID, nil
}

func (r *PostRepository) UpdateTransaction(ctx context.Context, input txplore.EditTransactionInput) error {

	changes := map[string]any{}
	if input.Content != nil {
		changes["content"] = *input.Content
	}
	if input.Balance != nil {
		changes["balance"] = *input.Balance
	}
	if len(changes) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ?", input.ID).
		Updates(changes).Error
	if err != nil {
		return errors.Wrap(err, "failed to update transaction")
	}
	return nil
}

func (r *PostRepository) DeleteTransaction(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.Transaction{}, id)
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to delete transaction")
	}
	return result.RowsAffected > 0, nil
}

func postFromModel(row models.Post) txplore.Post {
	return txplore.Post{
		ID:        row.ID,
		Title:     row.Title,
		Content:   row.Content,
		CreatedAt: row.CDate,
		UpdatedAt: row.MDate,
	}
}

func transactionFromModel(row models.Transaction) txplore.Transaction {
	return txplore.Transaction{
		ID:        row.ID,
		PostID:    row.PostID,
		Content:   row.Content,
		Balance:   row.Balance,
		TimeStamp: row.TimeStamp,
		CreatedAt: row.CDate,
		UpdatedAt: row.MDate,
	}
}
