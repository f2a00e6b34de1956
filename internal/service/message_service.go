package service

import (
	"context"
	"fmt"
	"mailsync-go/internal/model"
	"mailsync-go/internal/repository"
	"mailsync-go/pkg/log"
	"mailsync-go/pkg/tasks"
	"sort"

	"gorm.io/gorm"
)

// IndexTaskProducer 把索引任务投递到索引管道。
type IndexTaskProducer interface {
	ProduceIndexTask(ctx context.Context, task tasks.IndexTask) error
}

// MessageService 接口定义了对邮件的修改操作。
type MessageService interface {
	UpdateMessage(ctx context.Context, namespacePublicID, messagePublicID string, request map[string]interface{}) (*model.MessageResponseDTO, error)
}

// 服务商保留的特殊 Gmail 标签名。
var specialLabels = map[string]string{
	"inbox":     `\Inbox`,
	"important": `\Important`,
	"all":       `\All`,
	"trash":     `\Trash`,
	"spam":      `\Spam`,
}

type messageService struct {
	accountRepo  repository.AccountRepository
	messageRepo  repository.MessageRepository
	categoryRepo repository.CategoryRepository
	producer     IndexTaskProducer
}

// NewMessageService 创建一个新的 MessageService 实例。
func NewMessageService(
	accountRepo repository.AccountRepository,
	messageRepo repository.MessageRepository,
	categoryRepo repository.CategoryRepository,
	producer IndexTaskProducer,
) MessageService {
	return &messageService{
		accountRepo:  accountRepo,
		messageRepo:  messageRepo,
		categoryRepo: categoryRepo,
		producer:     producer,
	}
}

// messageChange 是校验后的更新请求。
type messageChange struct {
	unread   *bool
	starred  *bool
	labels   []string
	hasLabel bool
	folder   *string
}

// UpdateMessage 校验并应用 unread、starred 以及 labels（Gmail）或 folder（其他服务商）的修改，
// 为每项修改写入 action log，并触发重新索引。
func (s *messageService) UpdateMessage(ctx context.Context, namespacePublicID, messagePublicID string, request map[string]interface{}) (*model.MessageResponseDTO, error) {
	namespaceID, err := model.DecodePublicID(namespacePublicID)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	messageID, err := model.DecodePublicID(messagePublicID)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}

	account, err := s.accountRepo.FindByID(ctx, namespaceID)
	if err != nil {
		return nil, err
	}
	change, err := parseMessageChange(account.Provider, request)
	if err != nil {
		return nil, err
	}

	message, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.NamespaceID != namespaceID {
		return nil, gorm.ErrRecordNotFound
	}

	update := &repository.MessageUpdate{Message: message}
	if change.unread != nil {
		message.Unread = *change.unread
		update.Actions = append(update.Actions, newAction(message, "mark_unread", map[string]interface{}{"unread": *change.unread}))
	}
	if change.starred != nil {
		message.Starred = *change.starred
		update.Actions = append(update.Actions, newAction(message, "mark_starred", map[string]interface{}{"starred": *change.starred}))
	}

	if change.hasLabel {
		categories, err := s.resolveCategories(ctx, namespaceID, change.labels, "Label")
		if err != nil {
			return nil, err
		}
		added, removed, err := diffLabels(message.Categories, categories)
		if err != nil {
			return nil, err
		}
		update.Categories = categories
		update.Actions = append(update.Actions, newAction(message, "change_labels", map[string]interface{}{
			"added_labels":   added,
			"removed_labels": removed,
		}))
	} else if change.folder != nil {
		categories, err := s.resolveCategories(ctx, namespaceID, []string{*change.folder}, "Folder")
		if err != nil {
			return nil, err
		}
		update.Categories = categories
		update.Actions = append(update.Actions, newAction(message, "move", map[string]interface{}{
			"destination": categories[0].DisplayName,
		}))
	}

	if err := s.messageRepo.ApplyUpdate(ctx, update); err != nil {
		return nil, err
	}
	log.Infof("[MessageService] 邮件 %s 已更新, 写入 %d 条 action log", messagePublicID, len(update.Actions))

	s.reindex(ctx, namespacePublicID, message)

	dto := model.NewMessageResponse(message, account.Provider)
	return &dto, nil
}

// reindex 投递邮件及其会话的索引任务。投递失败不影响已提交的修改。
func (s *messageService) reindex(ctx context.Context, namespacePublicID string, message *model.Message) {
	for _, task := range []tasks.IndexTask{
		{Kind: tasks.KindMessage, NamespacePublicID: namespacePublicID, RecordID: message.ID},
		{Kind: tasks.KindThread, NamespacePublicID: namespacePublicID, RecordID: message.ThreadID},
	} {
		if err := s.producer.ProduceIndexTask(ctx, task); err != nil {
			log.Errorf("[MessageService] 投递索引任务失败: kind=%s, record=%d, err=%v", task.Kind, task.RecordID, err)
		}
	}
}

// resolveCategories 把公开 ID 解析为 namespace 内的分类，任一 ID 不存在即报错。
func (s *messageService) resolveCategories(ctx context.Context, namespaceID int64, publicIDs []string, kind string) ([]model.Category, error) {
	ids := make([]int64, 0, len(publicIDs))
	seen := make(map[int64]bool, len(publicIDs))
	for _, pid := range publicIDs {
		id, err := model.DecodePublicID(pid)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s does not exist", ErrInputError, kind, pid)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	found, err := s.categoryRepo.FindByIDs(ctx, namespaceID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]model.Category, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	categories := make([]model.Category, 0, len(ids))
	for i, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s %s does not exist", ErrInputError, kind, publicIDs[i])
		}
		categories = append(categories, c)
	}
	return categories, nil
}

func parseMessageChange(provider string, request map[string]interface{}) (*messageChange, error) {
	change := &messageChange{}
	remaining := make(map[string]interface{}, len(request))
	for k, v := range request {
		remaining[k] = v
	}

	if v, ok := remaining["unread"]; ok {
		delete(remaining, "unread")
		if v != nil {
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("%w: \"unread\" must be true or false", ErrInputError)
			}
			change.unread = &b
		}
	}
	if v, ok := remaining["starred"]; ok {
		delete(remaining, "starred")
		if v != nil {
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("%w: \"starred\" must be true or false", ErrInputError)
			}
			change.starred = &b
		}
	}

	if provider == model.ProviderGmail {
		if v, ok := remaining["labels"]; ok {
			delete(remaining, "labels")
			if v != nil {
				labels, ok := toStringList(v)
				if !ok {
					return nil, fmt.Errorf("%w: \"labels\" must be a list of strings", ErrInputError)
				}
				change.labels = labels
				change.hasLabel = true
			}
		}
		if len(remaining) > 0 {
			return nil, fmt.Errorf("%w: Only the \"unread\", \"starred\" and \"labels\" attributes can be changed", ErrInputError)
		}
		return change, nil
	}

	if v, ok := remaining["folder"]; ok {
		delete(remaining, "folder")
		if v != nil {
			folder, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: \"folder\" must be a string", ErrInputError)
			}
			change.folder = &folder
		}
	}
	if len(remaining) > 0 {
		return nil, fmt.Errorf("%w: Only the \"unread\", \"starred\" and \"folder\" attributes can be changed", ErrInputError)
	}
	return change, nil
}

func toStringList(v interface{}) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// diffLabels 计算新增与移除的标签名，drafts 与 sent 不允许被修改。
func diffLabels(current, next []model.Category) ([]string, []string, error) {
	currentIDs := make(map[int64]bool, len(current))
	for _, c := range current {
		currentIDs[c.ID] = true
	}
	nextIDs := make(map[int64]bool, len(next))
	for _, c := range next {
		nextIDs[c.ID] = true
	}

	var addedCats, removedCats []model.Category
	for _, c := range next {
		if !currentIDs[c.ID] {
			addedCats = append(addedCats, c)
		}
	}
	for _, c := range current {
		if !nextIDs[c.ID] {
			removedCats = append(removedCats, c)
		}
	}

	added, err := labelNames(addedCats)
	if err != nil {
		return nil, nil, err
	}
	removed, err := labelNames(removedCats)
	if err != nil {
		return nil, nil, err
	}
	return added, removed, nil
}

func labelNames(categories []model.Category) ([]string, error) {
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		if special, ok := specialLabels[c.Name]; ok {
			names = append(names, special)
			continue
		}
		if c.Name == "drafts" || c.Name == "sent" {
			return nil, fmt.Errorf("%w: The %q label cannot be changed", ErrInputError, c.Name)
		}
		names = append(names, c.DisplayName)
	}
	return names, nil
}

func newAction(m *model.Message, action string, extra map[string]interface{}) model.ActionLog {
	return model.ActionLog{
		NamespaceID: m.NamespaceID,
		RecordID:    m.ID,
		RecordType:  "message",
		Action:      action,
		Extra:       extra,
		Status:      model.ActionStatusPending,
	}
}
