package service

import (
	"context"
	"mailsync-go/internal/model"
	"mailsync-go/pkg/tasks"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testNamespaceID = int64(1<<48 + 1)
	testThreadID    = int64(1<<48 + 2)
	testMessageID   = int64(1<<48 + 3)
)

var (
	catInbox  = model.Category{ID: 1<<48 + 10, NamespaceID: testNamespaceID, Name: "inbox", DisplayName: "Inbox"}
	catWork   = model.Category{ID: 1<<48 + 11, NamespaceID: testNamespaceID, DisplayName: "Work"}
	catSent   = model.Category{ID: 1<<48 + 12, NamespaceID: testNamespaceID, Name: "sent", DisplayName: "Sent"}
	catTrash  = model.Category{ID: 1<<48 + 13, NamespaceID: testNamespaceID, Name: "trash", DisplayName: "Trash"}
	catOthers = model.Category{ID: 2<<48 + 10, NamespaceID: 2<<48 + 1, DisplayName: "Foreign"}
)

type messageFixture struct {
	svc      MessageService
	messages *fakeMessageRepo
	producer *fakeProducer
	message  *model.Message
}

func newMessageFixture(provider string, categories ...model.Category) *messageFixture {
	msg := &model.Message{
		ID:          testMessageID,
		NamespaceID: testNamespaceID,
		ThreadID:    testThreadID,
		Unread:      true,
		Categories:  categories,
	}
	accounts := newFakeAccountRepo(&model.Account{ID: testNamespaceID, Email: "a@example.com", Provider: provider})
	messages := &fakeMessageRepo{messages: map[int64]*model.Message{msg.ID: msg}}
	cats := &fakeCategoryRepo{categories: []model.Category{catInbox, catWork, catSent, catTrash, catOthers}}
	producer := &fakeProducer{}
	return &messageFixture{
		svc:      NewMessageService(accounts, messages, cats, producer),
		messages: messages,
		producer: producer,
		message:  msg,
	}
}

func (f *messageFixture) update(req map[string]interface{}) (*model.MessageResponseDTO, error) {
	return f.svc.UpdateMessage(context.Background(),
		model.EncodePublicID(testNamespaceID), model.EncodePublicID(testMessageID), req)
}

func TestUpdateMessage_Flags(t *testing.T) {
	f := newMessageFixture(model.ProviderIMAP)

	dto, err := f.update(map[string]interface{}{"unread": false, "starred": true})
	require.NoError(t, err)
	assert.False(t, dto.Unread)
	assert.True(t, dto.Starred)

	require.Len(t, f.messages.updates, 1)
	actions := f.messages.updates[0].Actions
	require.Len(t, actions, 2)
	assert.Equal(t, "mark_unread", actions[0].Action)
	assert.Equal(t, map[string]interface{}{"unread": false}, actions[0].Extra)
	assert.Equal(t, "mark_starred", actions[1].Action)
	assert.Equal(t, testMessageID, actions[1].RecordID)
	assert.Equal(t, model.ActionStatusPending, actions[1].Status)
	assert.Nil(t, f.messages.updates[0].Categories)

	assert.Equal(t, []tasks.IndexTask{
		{Kind: tasks.KindMessage, NamespacePublicID: model.EncodePublicID(testNamespaceID), RecordID: testMessageID},
		{Kind: tasks.KindThread, NamespacePublicID: model.EncodePublicID(testNamespaceID), RecordID: testThreadID},
	}, f.producer.tasks)
}

func TestUpdateMessage_ChangeLabels(t *testing.T) {
	f := newMessageFixture(model.ProviderGmail, catInbox, catWork)

	_, err := f.update(map[string]interface{}{
		"labels": []interface{}{model.EncodePublicID(catWork.ID), model.EncodePublicID(catTrash.ID)},
	})
	require.NoError(t, err)

	update := f.messages.updates[0]
	assert.Equal(t, []model.Category{catWork, catTrash}, update.Categories)
	require.Len(t, update.Actions, 1)
	assert.Equal(t, "change_labels", update.Actions[0].Action)
	assert.Equal(t, []string{`\Trash`}, update.Actions[0].Extra["added_labels"])
	assert.Equal(t, []string{`\Inbox`}, update.Actions[0].Extra["removed_labels"])
}

func TestUpdateMessage_Move(t *testing.T) {
	f := newMessageFixture(model.ProviderIMAP, catInbox)

	dto, err := f.update(map[string]interface{}{"folder": model.EncodePublicID(catWork.ID)})
	require.NoError(t, err)
	assert.Equal(t, model.EncodePublicID(catWork.ID), dto.Folder)

	update := f.messages.updates[0]
	require.Len(t, update.Actions, 1)
	assert.Equal(t, "move", update.Actions[0].Action)
	assert.Equal(t, "Work", update.Actions[0].Extra["destination"])
}

func TestUpdateMessage_InputErrors(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		current  []model.Category
		req      map[string]interface{}
		msg      string
	}{
		{"unread not bool", model.ProviderIMAP, nil, map[string]interface{}{"unread": "yes"}, `"unread" must be true or false`},
		{"starred not bool", model.ProviderGmail, nil, map[string]interface{}{"starred": 1}, `"starred" must be true or false`},
		{"labels not list", model.ProviderGmail, nil, map[string]interface{}{"labels": "x"}, `"labels" must be a list of strings`},
		{"labels not strings", model.ProviderGmail, nil, map[string]interface{}{"labels": []interface{}{1}}, `"labels" must be a list of strings`},
		{"folder on gmail", model.ProviderGmail, nil, map[string]interface{}{"folder": "x"}, `Only the "unread", "starred" and "labels" attributes can be changed`},
		{"labels on imap", model.ProviderIMAP, nil, map[string]interface{}{"labels": []interface{}{}}, `Only the "unread", "starred" and "folder" attributes can be changed`},
		{"folder not string", model.ProviderEAS, nil, map[string]interface{}{"folder": []interface{}{"a"}}, `"folder" must be a string`},
		{"unknown label", model.ProviderGmail, nil, map[string]interface{}{"labels": []interface{}{"zzz"}}, "Label zzz does not exist"},
		{"label in other namespace", model.ProviderGmail, nil, map[string]interface{}{"labels": []interface{}{model.EncodePublicID(catOthers.ID)}}, "does not exist"},
		{"unknown folder", model.ProviderIMAP, nil, map[string]interface{}{"folder": "zzz"}, "Folder zzz does not exist"},
		{"add sent", model.ProviderGmail, nil, map[string]interface{}{"labels": []interface{}{model.EncodePublicID(catSent.ID)}}, `The "sent" label cannot be changed`},
		{"remove sent", model.ProviderGmail, []model.Category{catSent}, map[string]interface{}{"labels": []interface{}{}}, `The "sent" label cannot be changed`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMessageFixture(tt.provider, tt.current...)
			_, err := f.update(tt.req)
			require.ErrorIs(t, err, ErrInputError)
			assert.Contains(t, err.Error(), tt.msg)
			assert.Empty(t, f.messages.updates)
			assert.Empty(t, f.producer.tasks)
		})
	}
}

func TestUpdateMessage_NotFound(t *testing.T) {
	f := newMessageFixture(model.ProviderIMAP)

	_, err := f.svc.UpdateMessage(context.Background(),
		model.EncodePublicID(testNamespaceID), model.EncodePublicID(testMessageID+100), map[string]interface{}{})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// 邮件属于其他 namespace
	f.message.NamespaceID = 2<<48 + 1
	_, err = f.update(map[string]interface{}{"unread": true})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = f.svc.UpdateMessage(context.Background(), "!!", "1", nil)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
