package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSenderEmail(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{
			name:   "bottom-most header wins",
			text:   "De: Ventas <ventas@fabrica.es>\nhola\nDe: Pepe <Pepe@Cliente.ES>\npedido",
			want:   "pepe@cliente.es",
			wantOK: true,
		},
		{
			name:   "bold header",
			text:   "**De:** Almacenes Gil <compras@gil.com>\n**Enviado:** lunes",
			want:   "compras@gil.com",
			wantOK: true,
		},
		{
			name:   "standalone address",
			text:   "texto\nde: pedidos@soria.es",
			want:   "pedidos@soria.es",
			wantOK: true,
		},
		{
			name:   "inline header",
			text:   "Reenviado. De: Daniel Montesinos <brosmovi@hotmail.com> Enviado el: martes",
			want:   "brosmovi@hotmail.com",
			wantOK: true,
		},
		{
			name:   "line-start header without address stops the search",
			text:   "Mensaje De: x <a@b.com>\nDe: Juan",
			wantOK: false,
		},
		{
			name:   "no header",
			text:   "pedido sin cabecera a@b.com",
			wantOK: false,
		},
		{
			name:   "empty",
			text:   "",
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SenderEmail(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
