package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratedCourseValidate(t *testing.T) {
	valid := &GeneratedCourse{
		Title: "Ordering Food",
		Words: []GeneratedWord{{Chinese: "点菜", Pinyin: "diǎn cài", English: "to order food"}},
	}
	require.NoError(t, valid.Validate())

	t.Run("nil course", func(t *testing.T) {
		var course *GeneratedCourse
		assert.Error(t, course.Validate())
	})

	t.Run("missing title", func(t *testing.T) {
		course := *valid
		course.Title = ""
		assert.Error(t, course.Validate())
	})

	t.Run("no words", func(t *testing.T) {
		course := *valid
		course.Words = nil
		assert.Error(t, course.Validate())
	})

	t.Run("word without chinese", func(t *testing.T) {
		course := *valid
		course.Words = []GeneratedWord{{English: "hello"}}
		assert.Error(t, course.Validate())
	})
}

func TestUnmarshalGeneratedCourse(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		course := &GeneratedCourse{
			Title:       "Ordering Food",
			Description: "Restaurant vocabulary",
			Words:       []GeneratedWord{{Chinese: "点菜", Pinyin: "diǎn cài", English: "to order food"}},
		}
		data, err := course.MarshalPayload()
		require.NoError(t, err)

		parsed, err := UnmarshalGeneratedCourse(data)
		require.NoError(t, err)
		assert.Equal(t, course, parsed)
	})

	t.Run("malformed json rejected", func(t *testing.T) {
		_, err := UnmarshalGeneratedCourse([]byte(`{"title":`))
		assert.Error(t, err)
	})

	t.Run("structurally valid but semantically empty payload rejected", func(t *testing.T) {
		_, err := UnmarshalGeneratedCourse([]byte(`{"title":"x","words":[]}`))
		assert.Error(t, err)
	})
}
