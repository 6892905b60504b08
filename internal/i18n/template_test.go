package i18n

import (
	"reflect"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		value string
		vars  map[string]string
		want  string
	}{
		{
			name:  "substitutes all markers",
			value: "Olá {{customer_name}}, pedido {{order_id}} confirmado",
			vars:  map[string]string{"customer_name": "Ana", "order_id": "P-1001"},
			want:  "Olá Ana, pedido P-1001 confirmado",
		},
		{
			name:  "marker with inner spaces",
			value: "Total: {{ total }} {{currency}}",
			vars:  map[string]string{"total": "129,90", "currency": "BRL"},
			want:  "Total: 129,90 BRL",
		},
		{
			name:  "unknown marker stays visible",
			value: "Olá {{customer_name}}, rastreio {{tracking_code}}",
			vars:  map[string]string{"customer_name": "Ana"},
			want:  "Olá Ana, rastreio {{tracking_code}}",
		},
		{
			name:  "repeated marker",
			value: "{{order_id}} / {{order_id}}",
			vars:  map[string]string{"order_id": "P-1"},
			want:  "P-1 / P-1",
		},
		{
			name:  "no vars returns value untouched",
			value: "Olá {{customer_name}}",
			vars:  nil,
			want:  "Olá {{customer_name}}",
		},
		{
			name:  "empty value",
			value: "",
			vars:  map[string]string{"a": "b"},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.value, tt.vars); got != tt.want {
				t.Fatalf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("Olá {{customer_name}}, pedido {{order_id}} de {{ total }} ({{order_id}})")
	want := []string{"customer_name", "order_id", "total"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Placeholders() = %v, want %v", got, want)
	}

	if Placeholders("sem marcadores") != nil {
		t.Fatal("expected nil for a value without markers")
	}
}
