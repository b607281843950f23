package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTableName(t *testing.T) {
	tests := []struct {
		typeID string
		want   string
	}{
		{"Task", "task"},
		{"models.Task", "task"},
		{"modelkit/models.UserProfile", "userprofile"},
		{"note", "note"},
	}

	for _, tt := range tests {
		t.Run(tt.typeID, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultTableName(tt.typeID))
		})
	}
}

func TestParseStorageType(t *testing.T) {
	st, err := ParseStorageType("integer")
	require.NoError(t, err)
	assert.Equal(t, TypeInteger, st)

	_, err = ParseStorageType("VARCHAR")
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
}

func TestRegistry_RegisterModel(t *testing.T) {
	t.Run("Defaults table name from type", func(t *testing.T) {
		r := New()
		d := r.RegisterModel("models.Task", ModelOptions{})
		assert.Equal(t, "task", d.TableName)
	})

	t.Run("Explicit table name wins", func(t *testing.T) {
		r := New()
		d := r.RegisterModel("models.Task", ModelOptions{TableName: "tasks"})
		assert.Equal(t, "tasks", d.TableName)
	})

	t.Run("Fields registered before model are kept", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterField("models.Task", "title", FieldOptions{Type: TypeText}))
		r.RegisterModel("models.Task", ModelOptions{TableName: "tasks"})

		d, ok := r.Descriptor("models.Task")
		require.True(t, ok)
		assert.Equal(t, "tasks", d.TableName)
		assert.Equal(t, []string{"title"}, d.ColumnNames())
	})
}

func TestRegistry_RegisterField(t *testing.T) {
	t.Run("Re-registering overwrites in place", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterField("Task", "title", FieldOptions{Type: TypeText}))
		require.NoError(t, r.RegisterField("Task", "done", FieldOptions{Type: TypeInteger}))
		require.NoError(t, r.RegisterField("Task", "title", FieldOptions{Type: TypeText, Nullable: true}))

		d, _ := r.Descriptor("Task")
		assert.Equal(t, []string{"title", "done"}, d.ColumnNames())
		f, ok := d.Field("title")
		require.True(t, ok)
		assert.True(t, f.Nullable)
	})

	t.Run("Primary key is placed first", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterField("Task", "title", FieldOptions{Type: TypeText}))
		require.NoError(t, r.RegisterField("Task", "id", FieldOptions{Type: TypeInteger, PrimaryKey: true, AutoIncrement: true}))

		d, _ := r.Descriptor("Task")
		assert.Equal(t, []string{"id", "title"}, d.ColumnNames())
	})

	t.Run("Field that becomes a primary key moves to the key block", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterField("Task", "title", FieldOptions{Type: TypeText}))
		require.NoError(t, r.RegisterField("Task", "code", FieldOptions{Type: TypeText}))
		require.NoError(t, r.RegisterField("Task", "code", FieldOptions{Type: TypeText, PrimaryKey: true}))

		d, _ := r.Descriptor("Task")
		assert.Equal(t, []string{"code", "title"}, d.ColumnNames())
	})

	t.Run("Field that stops being a primary key leaves the key block", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterField("Member", "userId", FieldOptions{Type: TypeInteger, PrimaryKey: true}))
		require.NoError(t, r.RegisterField("Member", "groupId", FieldOptions{Type: TypeInteger, PrimaryKey: true}))
		require.NoError(t, r.RegisterField("Member", "role", FieldOptions{Type: TypeText}))
		require.NoError(t, r.RegisterField("Member", "userId", FieldOptions{Type: TypeInteger}))

		d, _ := r.Descriptor("Member")
		assert.Equal(t, []string{"groupId", "userId", "role"}, d.ColumnNames())
	})

	t.Run("Type defaults to TEXT", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterField("Task", "title", FieldOptions{}))
		d, _ := r.Descriptor("Task")
		assert.Equal(t, TypeText, d.Fields[0].Type)
	})

	t.Run("Default value marks the field optional", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterField("Task", "completed", FieldOptions{Type: TypeInteger, Default: int64(0)}))
		d, _ := r.Descriptor("Task")
		assert.True(t, d.Fields[0].HasDefault)
		assert.False(t, d.Fields[0].Required())
	})

	tests := []struct {
		name  string
		setup func(r *Registry) error
	}{
		{
			name: "Auto-increment without primary key",
			setup: func(r *Registry) error {
				return r.RegisterField("Task", "id", FieldOptions{Type: TypeInteger, AutoIncrement: true})
			},
		},
		{
			name: "Auto-increment on TEXT",
			setup: func(r *Registry) error {
				return r.RegisterField("Task", "id", FieldOptions{Type: TypeText, PrimaryKey: true, AutoIncrement: true})
			},
		},
		{
			name: "Second auto-increment field",
			setup: func(r *Registry) error {
				if err := r.RegisterField("Task", "id", FieldOptions{Type: TypeInteger, PrimaryKey: true, AutoIncrement: true}); err != nil {
					return err
				}
				return r.RegisterField("Task", "seq", FieldOptions{Type: TypeInteger, PrimaryKey: true, AutoIncrement: true})
			},
		},
		{
			name: "Primary key next to auto-increment key",
			setup: func(r *Registry) error {
				if err := r.RegisterField("Task", "id", FieldOptions{Type: TypeInteger, PrimaryKey: true, AutoIncrement: true}); err != nil {
					return err
				}
				return r.RegisterField("Task", "code", FieldOptions{Type: TypeText, PrimaryKey: true})
			},
		},
		{
			name: "Unknown storage type",
			setup: func(r *Registry) error {
				return r.RegisterField("Task", "title", FieldOptions{Type: "VARCHAR"})
			},
		},
		{
			name: "Empty field name",
			setup: func(r *Registry) error {
				return r.RegisterField("Task", "", FieldOptions{Type: TypeText})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.setup(New())
			require.Error(t, err)

			var mErr *MappingError
			require.True(t, errors.As(err, &mErr))
			assert.ErrorIs(t, err, ErrInvalidDescriptor)
		})
	}
}

func TestRegistry_RejectedRegistrationLeavesNoTrace(t *testing.T) {
	t.Run("New type", func(t *testing.T) {
		r := New()
		err := r.Register("Pair", ModelOptions{TableName: "pairs"},
			Field{Name: "a", Options: FieldOptions{Type: TypeInteger, PrimaryKey: true, AutoIncrement: true}},
			Field{Name: "name", Options: FieldOptions{Type: TypeText}},
			Field{Name: "b", Options: FieldOptions{Type: TypeInteger, PrimaryKey: true, AutoIncrement: true}},
		)
		assert.ErrorIs(t, err, ErrInvalidDescriptor)

		_, ok := r.Descriptor("Pair")
		assert.False(t, ok)
		assert.Empty(t, r.All())
	})

	t.Run("Existing type", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Register("Task", ModelOptions{TableName: "tasks"},
			Field{Name: "id", Options: FieldOptions{Type: TypeInteger, PrimaryKey: true, AutoIncrement: true}},
			Field{Name: "title", Options: FieldOptions{Type: TypeText}},
		))

		err := r.Register("Task", ModelOptions{TableName: "todo"},
			Field{Name: "due", Options: FieldOptions{Type: TypeText}},
			Field{Name: "title", Options: FieldOptions{Type: "VARCHAR"}},
		)
		assert.ErrorIs(t, err, ErrInvalidDescriptor)

		d, ok := r.Descriptor("Task")
		require.True(t, ok)
		assert.Equal(t, "tasks", d.TableName)
		assert.Equal(t, []string{"id", "title"}, d.ColumnNames())
		assert.Len(t, r.All(), 1)
	})

	t.Run("Single field", func(t *testing.T) {
		r := New()
		err := r.RegisterField("Ghost", "", FieldOptions{Type: TypeText})
		require.Error(t, err)
		assert.Empty(t, r.All())
	})
}

func TestRegistry_RegisterKeepsDescriptorIdentity(t *testing.T) {
	r := New()
	d := r.RegisterModel("Task", ModelOptions{})
	require.NoError(t, r.Register("Task", ModelOptions{TableName: "tasks"},
		Field{Name: "title", Options: FieldOptions{Type: TypeText}}))

	got, _ := r.Descriptor("Task")
	assert.Same(t, d, got)
	assert.Equal(t, "tasks", d.TableName)
}

func TestRegistry_AllKeepsRegistrationOrder(t *testing.T) {
	r := New()
	r.RegisterModel("Task", ModelOptions{})
	r.RegisterModel("Note", ModelOptions{})
	r.RegisterModel("Tag", ModelOptions{})
	r.RegisterModel("Task", ModelOptions{TableName: "tasks"})

	var names []string
	for _, d := range r.All() {
		names = append(names, d.TableName)
	}
	assert.Equal(t, []string{"tasks", "note", "tag"}, names)
}

func TestRegistry_ReRegistrationLeavesOtherTypesAlone(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterField("Task", "title", FieldOptions{Type: TypeText}))
	require.NoError(t, r.RegisterField("Note", "body", FieldOptions{Type: TypeText}))

	require.NoError(t, r.RegisterField("Task", "title", FieldOptions{Type: TypeText}))
	require.NoError(t, r.RegisterField("Task", "due", FieldOptions{Type: TypeText, Nullable: true}))

	note, _ := r.Descriptor("Note")
	assert.Equal(t, []string{"body"}, note.ColumnNames())
	task, _ := r.Descriptor("Task")
	assert.Equal(t, []string{"title", "due"}, task.ColumnNames())
}

func TestMappingError_Message(t *testing.T) {
	err := &MappingError{Type: "models.Task", Field: "title", Err: ErrMissingField}
	assert.Equal(t, "mapping error for models.Task.title: required field missing", err.Error())
	assert.ErrorIs(t, err, ErrMissingField)
}
